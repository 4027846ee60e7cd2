package bridge

import (
	"io"
	"log/slog"
	"time"

	"i4.energy/across/serbridge/at"
	"i4.energy/across/serbridge/settings"
)

// Dispatcher executes matched control commands. Responses are written to
// Out, the sink of the stream the command arrived on.
type Dispatcher struct {
	Out          io.Writer
	State        *State
	Store        settings.Store
	Sleeper      Sleeper
	Restarter    Restarter
	RestartDelay time.Duration
	Logger       *slog.Logger
}

var _ at.Handler = (*Dispatcher)(nil)

// Dispatch runs the command m. It returns ErrSleep after SLEEP and
// ErrRestart after SET-CONFIG, once the respective capability was invoked.
func (d *Dispatcher) Dispatch(m at.Match) error {
	d.logger().Info("control command", "command", m.Command.String())

	switch m.Command {
	case at.CmdSaveFailsafe:
		if err := d.Store.Save(settings.FailsafeName, d.State.Record); err != nil {
			d.logger().Error("save failsafe record", "error", err)
		}
		d.echo("", settings.FailsafeName)
		d.reply(at.OK + at.CRLF)

	case at.CmdQueryConfig:
		d.echo(at.EchoPrefix, settings.ConfigName)
		d.reply(at.OK + at.CRLF)

	case at.CmdSleep:
		d.reply(at.OK)
		if d.Sleeper != nil {
			d.Sleeper.Sleep()
		}
		return ErrSleep

	case at.CmdSetConfig:
		d.reply(at.OK + at.CRLF)
		if err := settings.ReadFromText(&d.State.Record, m.Payload); err != nil {
			d.logger().Warn("config payload rejected", "error", err)
		}
		d.reply(at.OK + at.CRLF)
		if err := d.Store.Save(settings.ConfigName, d.State.Record); err != nil {
			d.logger().Error("save config record", "error", err)
		}
		d.echo("", settings.ConfigName)
		d.reply(at.OK + at.CRLF)
		time.Sleep(d.RestartDelay)
		if d.Restarter != nil {
			d.Restarter.Restart()
		}
		return ErrRestart
	}
	return nil
}

// echo writes prefix followed by the stored text of the named record.
func (d *Dispatcher) echo(prefix, name string) {
	d.reply(prefix)
	raw, err := d.Store.Raw(name)
	if err != nil {
		d.logger().Warn("read stored record", "name", name, "error", err)
		return
	}
	d.reply(string(raw) + at.CRLF)
}

func (d *Dispatcher) reply(s string) {
	if s == "" || d.Out == nil {
		return
	}
	if _, err := io.WriteString(d.Out, s); err != nil {
		d.logger().Warn("write response", "error", err)
	}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}
