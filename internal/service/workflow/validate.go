package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-orders/internal/constants"
	"crm-orders/internal/storage"
)

var ErrValidation = errors.New("validation failed")

// ValidationError: локальная ошибка, запрос в сеть не отправляется.
// Item: номер строки с единицы, 0 если ошибка не относится к строке.
type ValidationError struct {
	Subject string
	Item    int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Item > 0 {
		return fmt.Sprintf("%s #%d: %s", e.Subject, e.Item, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// parseDate возвращает момент и признак "только дата" (без времени).
func parseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	for i, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, i == 0, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q", s)
}

// window: окно основного дедлайна; конец даты без времени включает весь день.
type window struct {
	start time.Time
	end   time.Time
}

func mainWindow(d storage.MainDeadline) (window, bool) {
	if !d.IsSet() {
		return window{}, false
	}

	start, _, err := parseDate(d.Start)
	if err != nil {
		return window{}, false
	}

	end, dateOnly, err := parseDate(d.End)
	if err != nil {
		return window{}, false
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	return window{start: start, end: end}, true
}

func ValidateMainDeadline(start, end string) error {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return &ValidationError{Subject: "deadline", Field: "deadline", Message: "start and end dates are required"}
	}

	s, _, err := parseDate(start)
	if err != nil {
		return &ValidationError{Subject: "deadline", Field: "start", Message: err.Error()}
	}

	e, _, err := parseDate(end)
	if err != nil {
		return &ValidationError{Subject: "deadline", Field: "end", Message: err.Error()}
	}

	if !s.Before(e) {
		return &ValidationError{Subject: "deadline", Field: "end", Message: "start date must be before end date"}
	}

	return nil
}

// FilterRawMaterials отбрасывает строки без названия или количества.
// Пустой результат: ошибка валидации.
func FilterRawMaterials(items []storage.RawMaterial) ([]storage.RawMaterialItem, error) {
	out := make([]storage.RawMaterialItem, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.MaterialName)
		qty := strings.TrimSpace(it.Quantity)
		if name == "" || qty == "" {
			continue
		}
		out = append(out, storage.RawMaterialItem{RawMaterial: name, Qty: qty})
	}

	if len(out) == 0 {
		return nil, &ValidationError{Subject: "raw material", Field: "items", Message: "at least one raw material required"}
	}

	return out, nil
}

// ValidateInternalDeadlines проверяет строки по порядку и останавливается на первой ошибке.
// Порядок проверок: обязательные поля, попадание в окно основного дедлайна,
// начало не позже конца, причина задержки для статуса Delayed.
func ValidateInternalDeadlines(main storage.MainDeadline, items []storage.InternalDeadline) ([]storage.DeadlineItem, error) {
	const subject = "internal deadline"

	win, hasWindow := mainWindow(main)

	for i, it := range items {
		n := i + 1

		if strings.TrimSpace(it.Name) == "" || strings.TrimSpace(it.StartAt) == "" || strings.TrimSpace(it.EndAt) == "" {
			return nil, &ValidationError{Subject: subject, Item: n, Field: "name", Message: "name, start and end are required"}
		}

		start, _, err := parseDate(it.StartAt)
		if err != nil {
			return nil, &ValidationError{Subject: subject, Item: n, Field: "startAt", Message: err.Error()}
		}
		end, _, err := parseDate(it.EndAt)
		if err != nil {
			return nil, &ValidationError{Subject: subject, Item: n, Field: "endAt", Message: err.Error()}
		}

		if hasWindow && (start.Before(win.start) || end.After(win.end)) {
			return nil, &ValidationError{Subject: subject, Item: n, Field: "startAt", Message: "must be within the main deadline"}
		}

		if start.After(end) {
			return nil, &ValidationError{Subject: subject, Item: n, Field: "endAt", Message: "start must not be after end"}
		}

		if it.Status != 0 && !constants.IsDeadlineStatus(it.Status) {
			return nil, &ValidationError{Subject: subject, Item: n, Field: "status", Message: fmt.Sprintf("unknown status %d", it.Status)}
		}

		if it.Status == constants.DeadlineDelayed && strings.TrimSpace(it.DelayReason) == "" {
			return nil, &ValidationError{Subject: subject, Item: n, Field: "delayReason", Message: "delay reason is required for delayed status"}
		}
	}

	out := make([]storage.DeadlineItem, 0, len(items))
	for _, it := range items {
		if it.Name == "" || it.StartAt == "" || it.EndAt == "" || it.Status == 0 {
			continue
		}

		item := storage.DeadlineItem{
			Name:    strings.TrimSpace(it.Name),
			StartAt: it.StartAt,
			EndAt:   it.EndAt,
			Status:  it.Status,
		}
		if it.Status == constants.DeadlineDelayed {
			item.DelayReason = strings.TrimSpace(it.DelayReason)
		}
		out = append(out, item)
	}

	if len(out) == 0 {
		return nil, &ValidationError{Subject: subject, Field: "items", Message: "at least one internal deadline required"}
	}

	return out, nil
}
