package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		want string
	}{
		{"ноль", 0, "0"},
		{"меньше тысячи", 999, "999"},
		{"тысячи", 2350, "2 350"},
		{"ровно тысяча", 1000, "1 000"},
		{"миллионы", 1234567, "1 234 567"},
		{"нули в середине", 1000500, "1 000 500"},
		{"отрицательное", -2350, "-2 350"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func TestFormatStars(t *testing.T) {
	assert.Equal(t, "12 345 ★", FormatStars(12345))
	assert.Equal(t, "0 ★", FormatStars(0))
}

func TestFormatTargetDisplay(t *testing.T) {
	ownerID := int64(111)
	other := int64(222)
	channel := "@durov"

	tests := []struct {
		name         string
		targetUserID *int64
		targetChatID *string
		want         string
	}{
		{"себе", &ownerID, nil, "себе (ID: 111)"},
		{"канал", nil, &channel, "@durov"},
		{"другой пользователь", &other, nil, "пользователь (ID: 222)"},
		{"не указан", nil, nil, "не указан"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTargetDisplay(tt.targetUserID, tt.targetChatID, ownerID))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "коро", Truncate("коро", 10))
	assert.Equal(t, "дли...", Truncate("длинная строка", 3))
}
