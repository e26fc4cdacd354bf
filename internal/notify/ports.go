package notify

import "context"

type Notificator interface {
	// Notify — отправляет сообщение об ошибке в операторский чат
	Notify(ctx context.Context, err error, details string) error
}
