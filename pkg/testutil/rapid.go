package testutil

import (
	"fmt"
	"time"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/beanwork/pkg/model"
)

// RapidBeans draws up to max beans with unique ids and arbitrary parent links:
// missing parents, self parents and cycles of any length all occur.
func RapidBeans(t *rapid.T, max int) []model.Bean {
	n := rapid.IntRange(0, max).Draw(t, "n")
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("b%d", i)
	}
	parentChoices := append([]string{"", "missing"}, ids...)

	beans := make([]model.Bean, n)
	for i := range beans {
		parent := ""
		if n > 0 {
			parent = rapid.SampledFrom(parentChoices).Draw(t, fmt.Sprintf("parent%d", i))
		}
		beans[i] = model.Bean{
			ID:        ids[i],
			Title:     rapid.SampledFrom([]string{"alpha", "beta", "gamma"}).Draw(t, fmt.Sprintf("title%d", i)),
			Status:    rapid.SampledFrom(model.Statuses).Draw(t, fmt.Sprintf("status%d", i)),
			Type:      rapid.SampledFrom(model.Types).Draw(t, fmt.Sprintf("type%d", i)),
			Priority:  rapid.SampledFrom(append([]model.Priority{""}, model.Priorities...)).Draw(t, fmt.Sprintf("priority%d", i)),
			ParentID:  parent,
			CreatedAt: BaseTime.Add(time.Duration(rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("created%d", i))) * time.Hour),
			UpdatedAt: BaseTime.Add(time.Duration(rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("updated%d", i))) * time.Hour),
		}
	}
	return beans
}
