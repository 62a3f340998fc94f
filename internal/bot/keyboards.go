package bot

import (
	"fmt"
	"strconv"
	"time"

	"medcenter/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	doctorsPerPage  = 6
	calendarDays    = 14
	calendarRowSize = 4
	slotsRowSize    = 3
)

// Callback data prefixes.
const (
	cbService     = "svc"
	cbDoctor      = "doc"
	cbDoctorsPage = "docp"
	cbDay         = "day"
	cbCalendar    = "cal"
	cbSlot        = "slot"
	cbNext        = "next"
	cbRedo        = "redo"
	cbConfirm     = "confirm"
	cbBack        = "back"
	cbCancel      = "cancel"
	cbNoop        = "noop"
)

func navRow(withBack bool) []tgbotapi.InlineKeyboardButton {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	if withBack {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBack))
	}
	return append(row, tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cbCancel))
}

func serviceKeyboard(types []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, t := range types {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t, cbService+":"+strconv.Itoa(i)),
		))
	}
	rows = append(rows, navRow(false))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// doctorsKeyboard shows one page of doctors. page is clamped into range.
func doctorsKeyboard(doctors []models.Doctor, page int) tgbotapi.InlineKeyboardMarkup {
	pages := (len(doctors) + doctorsPerPage - 1) / doctorsPerPage
	page = clampPage(page, pages)

	var rows [][]tgbotapi.InlineKeyboardButton
	start := page * doctorsPerPage
	end := min(start+doctorsPerPage, len(doctors))
	for _, d := range doctors[start:end] {
		label := d.Name
		if d.Specialty != "" {
			label += " · " + d.Specialty
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbDoctor+":"+strconv.FormatInt(d.ID, 10)),
		))
	}

	if pages > 1 {
		rows = append(rows, pagerRow(cbDoctorsPage, page, pages))
	}
	rows = append(rows, navRow(true))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// calendarKeyboard lists bookable days starting at today. The last page ends
// at today+maxDays.
func calendarKeyboard(today time.Time, maxDays, page int) tgbotapi.InlineKeyboardMarkup {
	total := maxDays + 1
	pages := (total + calendarDays - 1) / calendarDays
	page = clampPage(page, pages)

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	first := page * calendarDays
	last := min(first+calendarDays, total)
	for i := first; i < last; i++ {
		day := today.AddDate(0, 0, i)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			day.Format("Mon 02 Jan"),
			cbDay+":"+day.Format(models.DateLayout),
		))
		if len(row) == calendarRowSize {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if pages > 1 {
		rows = append(rows, pagerRow(cbCalendar, page, pages))
	}
	rows = append(rows, navRow(true))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func slotsKeyboard(slots []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range slots {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(s, cbSlot+":"+s))
		if len(row) == slotsRowSize {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, navRow(true))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func contactDoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Continue", cbNext),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Re-enter", cbRedo),
		),
		navRow(true),
	)
}

func reviewKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm booking", cbConfirm),
		),
		navRow(true),
	)
}

func phoneRequestKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButtonContact("📱 Share my phone number"),
	))
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

func pagerRow(prefix string, page, pages int) []tgbotapi.InlineKeyboardButton {
	prev := tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop)
	if page > 0 {
		prev = tgbotapi.NewInlineKeyboardButtonData("«", prefix+":"+strconv.Itoa(page-1))
	}
	next := tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop)
	if page < pages-1 {
		next = tgbotapi.NewInlineKeyboardButtonData("»", prefix+":"+strconv.Itoa(page+1))
	}
	return tgbotapi.NewInlineKeyboardRow(
		prev,
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", page+1, pages), cbNoop),
		next,
	)
}

func clampPage(page, pages int) int {
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}
