package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under "error". Nil errors yield an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Errors groups the non-nil errors under "errors".
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.String(strconv.Itoa(i), err.Error()))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// SubscriptionID records a subscription id under "subscription_id".
func SubscriptionID(id int64) slog.Attr {
	return slog.Int64("subscription_id", id)
}

// OrderID records an order id under "order_id".
func OrderID(id int64) slog.Attr {
	return slog.Int64("order_id", id)
}

// Action records a scheduled action name.
func Action(name string) slog.Attr {
	return slog.String("action", name)
}

// Signal records a dispatched signal name.
func Signal(name string) slog.Attr {
	return slog.String("signal", name)
}

// Component names the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Status records a subscription or order status.
func Status(s string) slog.Attr {
	return slog.String("status", s)
}

// Email records a recipient address under "email".
func Email(addr string) slog.Attr {
	return slog.String("email", addr)
}
