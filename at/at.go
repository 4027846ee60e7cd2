package at

const (
	// Terminal Control
	CRLF = "\r\n"
	CR   = '\r'
	LF   = '\n'

	// Response Codes
	OK = "OK"

	// Control tokens
	TokenSaveFailsafe = "+++AT+SAVE"
	TokenQueryConfig  = "+++AT+CFG?"
	TokenSleep        = "+++AT+SLEEP"
	TokenSetConfig    = "+++AT+CFG="

	// EchoPrefix precedes the raw configuration record in a query response.
	EchoPrefix = TokenSetConfig

	// Codeword selects the device baud rate inline. The wildcard position
	// matches any byte; the byte after the codeword is the selector digit.
	Codeword = "+++AT?"
	Wildcard = '?'
)

// LineCapacity bounds a single control line. It matches the serialized
// size bound of the configuration record.
const LineCapacity = 512

type Command int

const (
	CmdSaveFailsafe Command = iota // persist and echo the failsafe record
	CmdQueryConfig                 // echo the live record
	CmdSleep                       // enter low-power state
	CmdSetConfig                   // load record from payload, persist, restart
)

func (c Command) String() string {
	switch c {
	case CmdSaveFailsafe:
		return "save-failsafe"
	case CmdQueryConfig:
		return "query-config"
	case CmdSleep:
		return "sleep"
	case CmdSetConfig:
		return "set-config"
	default:
		return "unknown"
	}
}

// BaudRates is the selector table used by the codeword. Out-of-range
// selectors resolve to the last entry.
var BaudRates = [...]int{600, 1200, 2400, 4800, 9600}

// BaudRate maps a selector index to a baud rate.
func BaudRate(index int) int {
	if index < 0 || index >= len(BaudRates) {
		return BaudRates[len(BaudRates)-1]
	}
	return BaudRates[index]
}
