package diagnosis

import (
	"context"
	"strings"

	"github.com/rohhhan8/major-project-4th-year/internal/i18n"
	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

var profileMessages = map[model.Profile]string{
	model.ProfileStruggling:   "FeedbackStruggling",
	model.ProfileRushed:       "FeedbackRushed",
	model.ProfileHighAchiever: "FeedbackHighAchiever",
}

// Feedback renders the fixed feedback template for a profile and weakest
// pillar in the language carried by ctx.
func Feedback(ctx context.Context, profile model.Profile, weakest model.Pillar, topic string, rushed int) string {
	parts := make([]string, 0, 3)
	if id, ok := profileMessages[profile]; ok {
		parts = append(parts, i18n.Td(ctx, id, map[string]any{"Topic": topic}))
	}
	if weakest != "" {
		parts = append(parts, pillarTip(ctx, weakest))
	}
	if rushed > 0 {
		parts = append(parts, i18n.Tp(ctx, "RushedQuestions", rushed))
	}
	return strings.Join(parts, " ")
}

func pillarTip(ctx context.Context, p model.Pillar) string {
	if p.IsKnown() {
		id := "Tip" + string(p)
		if i18n.Has(ctx, id) {
			return i18n.T(ctx, id)
		}
	}
	return i18n.Td(ctx, "TipGeneric", map[string]any{"Pillar": string(p)})
}
