// Package sniper — report.go собирает HTML-отчёты движка для владельца.
package sniper

import (
	"fmt"
	"strings"

	"giftsninja.ru/gifts-bot/internal/common"
	"giftsninja.ru/gifts-bot/internal/features/accounts"
	"giftsninja.ru/gifts-bot/internal/features/catalog"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
)

// giftLine — агрегированная строка отчёта: один id подарка, число покупок.
type giftLine struct {
	price int64
	count int
}

// aggregate сворачивает покупки цикла по id подарка, сохраняя порядок
// первого появления (то есть по убыванию цены).
func aggregate(purchased []catalog.Gift) []giftLine {
	index := make(map[string]int, len(purchased))
	var lines []giftLine
	for _, g := range purchased {
		if i, ok := index[g.ID]; ok {
			lines[i].count++
			continue
		}
		index[g.ID] = len(lines)
		lines = append(lines, giftLine{price: g.Price, count: 1})
	}
	return lines
}

// profileSummary строит отчёт по профилю за цикл: завершение или
// частичный прогресс.
func profileSummary(index int, p *profiles.Profile, purchased []catalog.Gift, completed bool, ownerID int64) string {
	var b strings.Builder

	if completed {
		fmt.Fprintf(&b, "┌✅ <b>%s</b> — завершён\n", p.DisplayName(index))
	} else {
		fmt.Fprintf(&b, "┌⚠️ <b>%s</b> — выполнен частично\n", p.DisplayName(index))
	}

	fmt.Fprintf(&b, "├👤 <b>Получатель:</b> %s\n", common.FormatTargetDisplay(p.TargetUserID, p.TargetChatID, ownerID))
	fmt.Fprintf(&b, "├📤 <b>Отправитель:</b> %s\n", senderDisplay(p.Sender))
	fmt.Fprintf(&b, "├💸 <b>Потрачено:</b> %s из %s\n", common.FormatStars(p.Spent), common.FormatStars(p.Limit))
	fmt.Fprintf(&b, "└🎁 <b>Куплено:</b> %d из %d", p.Bought, p.Count)

	lines := aggregate(purchased)
	for i, line := range lines {
		branch := "├"
		if i == len(lines)-1 {
			branch = "└"
		}
		fmt.Fprintf(&b, "\n   %s %s × %d", branch, common.FormatStars(line.price), line.count)
	}

	if !completed {
		b.WriteString("\n\nОстаток будет докуплен в следующих циклах.")
	}
	return b.String()
}

// lowBalanceNotice — уведомление об отключении личности из-за нехватки звёзд.
func lowBalanceNotice(identity accounts.Identity, price, balance int64) string {
	who := "бота"
	tail := "Скупка остановлена."
	if identity == accounts.IdentityUserbot {
		who = "юзербота"
		tail = "Юзербот отключён, остальные профили продолжают работать."
	}
	return fmt.Sprintf(
		"⚠️ <b>Недостаточно звёзд на балансе %s</b>\n\n"+
			"Нужно: %s\nДоступно: %s\n\n%s\n\nПополните баланс и включите скупку снова.",
		who, common.FormatStars(price), common.FormatStars(balance), tail,
	)
}

// autoStopNotice — уведомление о глобальном отключении скупки.
func autoStopNotice() string {
	return "🛑 <b>Скупка отключена автоматически</b>\n\n" +
		"За последний цикл не удалась ни одна покупка ни в одном профиле.\n" +
		"Проверьте балансы и получателей, затем включите скупку снова."
}

// senderDisplay — человекочитаемое имя отправителя.
func senderDisplay(sender string) string {
	if sender == profiles.SenderUserbot {
		return "юзербот"
	}
	return "бот"
}
