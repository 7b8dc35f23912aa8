package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/toywonder-assistant/internal/i18n"
)

// StaticGenerator answers from canned text. Used when no model is configured.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (StaticGenerator) Name() string {
	return "static"
}

func (StaticGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	recipient := strings.TrimSpace(req.Message)

	if i18n.Normalize(req.Locale) == "bn" {
		return fmt.Sprintf("আমি নিশ্চিতভাবে %s-এর জন্য উপহার খুঁজতে সাহায্য করতে পারি! %s-এর উপর ভিত্তি করে, আমি আমাদের শিক্ষামূলক বা আউটডোর ফান বিভাগটি দেখার পরামর্শ দেব।",
			recipient, req.Domain), nil
	}
	return fmt.Sprintf("I can definitely help you find a gift for %s! Based on interests in %s, I'd recommend looking at our Educational or Outdoor Fun categories.",
		recipient, req.Domain), nil
}
