package bridge

import (
	"context"
	"crypto/subtle"
	"time"

	"i4.energy/across/serbridge/settings"
)

// request is a remote operation executed on the loop goroutine.
type request struct {
	ctx  context.Context
	run  func(l *Loop) (any, error)
	resp chan response
}

type response struct {
	result any
	err    error
}

// Status is a snapshot of the loop.
type Status struct {
	Mode         string `json:"mode"`
	Client       string `json:"client,omitempty"`
	Indicator    string `json:"indicator"`
	IdleCount    int    `json:"idle_count"`
	IdleDivision int    `json:"idle_division"`
	IdlePeriod   string `json:"idle_period"`
	BaudRate     int    `json:"baud"`
	Port         int    `json:"port"`
}

// exec hands run to the loop and waits for its result.
func (l *Loop) exec(ctx context.Context, run func(l *Loop) (any, error)) (any, error) {
	req := &request{
		ctx:  ctx,
		run:  run,
		resp: make(chan response, 1),
	}
	select {
	case l.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.resp:
		return resp.result, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// serviceRequests runs every waiting request. A request may leave a
// pending action that halts the loop after it was answered.
func (l *Loop) serviceRequests() error {
	for {
		select {
		case req := <-l.requests:
			if err := req.ctx.Err(); err != nil {
				req.resp <- response{err: err}
				continue
			}
			result, err := req.run(l)
			req.resp <- response{result: result, err: err}
			if l.pending != nil {
				halt := l.pending
				l.pending = nil
				return halt()
			}
		default:
			return nil
		}
	}
}

// Status returns a snapshot of the loop state.
func (l *Loop) Status(ctx context.Context) (Status, error) {
	res, err := l.exec(ctx, func(l *Loop) (any, error) {
		s := Status{
			Mode:         l.mode.String(),
			Indicator:    l.state.Indicator.State().String(),
			IdleCount:    l.state.Idle.Count(),
			IdleDivision: l.state.Idle.Division(),
			IdlePeriod:   l.state.Idle.Period().String(),
			BaudRate:     l.state.Record.BaudRate,
			Port:         l.state.Record.Port,
		}
		if l.client != nil {
			s.Client = l.client.String()
		}
		return s, nil
	})
	if err != nil {
		return Status{}, err
	}
	return res.(Status), nil
}

// Query returns the stored text of the live record, as echoed by the
// query command.
func (l *Loop) Query(ctx context.Context) ([]byte, error) {
	res, err := l.exec(ctx, func(l *Loop) (any, error) {
		return l.config.store.Raw(settings.ConfigName)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// Apply updates the live record from text, persists it and restarts the
// bridge. Malformed text is rejected without a restart. It returns the
// stored text of the updated record.
func (l *Loop) Apply(ctx context.Context, password string, text []byte) ([]byte, error) {
	res, err := l.exec(ctx, func(l *Loop) (any, error) {
		if !l.authorized(password) {
			return nil, ErrUnauthorized
		}
		rec := l.state.Record
		if err := settings.ReadFromText(&rec, text); err != nil {
			return nil, err
		}
		if err := l.config.store.Save(settings.ConfigName, rec); err != nil {
			return nil, err
		}
		l.state.Record = rec
		l.logger.Info("configuration applied remotely")
		l.pending = l.scheduleRestart(l.config.restartDelay)
		return l.config.store.Raw(settings.ConfigName)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// Reboot restarts the bridge.
func (l *Loop) Reboot(ctx context.Context, password string) error {
	_, err := l.exec(ctx, func(l *Loop) (any, error) {
		if !l.authorized(password) {
			return nil, ErrUnauthorized
		}
		l.logger.Info("restart requested remotely")
		l.pending = l.scheduleRestart(l.config.restartDelay)
		return nil, nil
	})
	return err
}

func (l *Loop) authorized(password string) bool {
	want := l.state.Record.UpdatePassword
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1
}

func (l *Loop) scheduleRestart(delay time.Duration) func() error {
	return func() error {
		time.Sleep(delay)
		l.config.restarter.Restart()
		return ErrRestart
	}
}
