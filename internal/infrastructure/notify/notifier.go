package notify

import (
	"context"
	"errors"
	"log"
)

// Notifier 將錯誤訊息推送給使用者，呼叫端不依賴其結果。
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Func 讓一般函式滿足 Notifier。
type Func func(ctx context.Context, message string) error

func (f Func) Notify(ctx context.Context, message string) error {
	return f(ctx, message)
}

// LogNotifier 將訊息寫入標準 log。
type LogNotifier struct {
	Prefix string
}

func (n LogNotifier) Notify(_ context.Context, message string) error {
	if n.Prefix != "" {
		log.Printf("[%s] %s", n.Prefix, message)
		return nil
	}
	log.Printf("[Notify] %s", message)
	return nil
}

// Multi 依序送給每個 Notifier，回傳所有錯誤的合併結果。
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard 丟棄所有訊息。
var Discard Notifier = Func(func(context.Context, string) error { return nil })
