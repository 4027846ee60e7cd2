package bridge

//go:generate go tool mockgen -destination=mock_power.go -package=bridge . Sleeper,Restarter

// Sleeper enters the low-power state.
type Sleeper interface {
	Sleep()
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func()

func (f SleeperFunc) Sleep() { f() }

// Restarter restarts the bridge with the persisted configuration.
type Restarter interface {
	Restart()
}

// RestarterFunc adapts a function to the Restarter interface.
type RestarterFunc func()

func (f RestarterFunc) Restart() { f() }
