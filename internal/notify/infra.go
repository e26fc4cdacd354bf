package notify

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Infra шлёт ошибки пайплайна в телеграм-чат операторов.
// Без токена работает как no-op: сервис не обязан иметь бота.
type Infra struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewInfra(botToken string, chatID int64) *Infra {
	if botToken == "" || chatID == 0 {
		return &Infra{}
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Printf("[notify] bot init fail, notifications disabled: %v", err)
		return &Infra{}
	}

	return &Infra{bot: bot, chatID: chatID}
}

func (i *Infra) Notify(ctx context.Context, err error, details string) error {
	if i.bot == nil {
		return nil
	}

	text := fmt.Sprintf("❗ Ошибка voicedx\n\nОшибка: %v\n\nДетали: %s", err, details)

	msg := tgbotapi.NewMessage(i.chatID, text)

	_, sendErr := i.bot.Send(msg)
	if sendErr != nil {
		log.Printf("[notify] send fail: %v", sendErr)
		return sendErr
	}

	return nil
}
