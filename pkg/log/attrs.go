package log

import "log/slog"

func FlowID[T ~string](id T) slog.Attr {
	return slog.String("flow_id", string(id))
}

func FlowUID[T ~string](uid T) slog.Attr {
	return slog.String("flow_uid", string(uid))
}

func ActionUID[T ~string](uid T) slog.Attr {
	return slog.String("action_uid", string(uid))
}

func EventName(name string) slog.Attr {
	return slog.String("event", name)
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
