package oracle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/archivist/internal/models"
)

func TestParseDecision_Valid(t *testing.T) {
	tests := []struct {
		raw  string
		tier models.Tier
		dept string
	}{
		{"长期-Office", models.TierLongTerm, "Office"},
		{"永久-办公室（党委办公室、党委工作部）", models.TierPermanent, "办公室（党委办公室、党委工作部）"},
		{"短期-财务资金部", models.TierShortTerm, "财务资金部"},
		{"  长期-Office\n", models.TierLongTerm, "Office"},
		{"'短期-市场开发部'", models.TierShortTerm, "市场开发部"},
		{"保管期限：永久-人力资源部", models.TierPermanent, "人力资源部"},
		{"LongTerm-Office", models.TierLongTerm, "Office"},
		{"长期-Legal-Contracts", models.TierLongTerm, "Legal-Contracts"},
		{"短期-永久档案室", models.TierShortTerm, "永久档案室"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, err := ParseDecision(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.tier, d.Tier)
			assert.Equal(t, tt.dept, d.Department)
			assert.Equal(t, tt.raw, d.Raw)
		})
	}
}

func TestParseDecision_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "garbage"},
		{"empty", ""},
		{"no separator", "长期 Office"},
		{"empty department", "长期-"},
		{"empty tier", "-Office"},
		{"unknown tier", "中期-Office"},
		{"two tiers", "永久或长期-Office"},
		{"tier only in department", "Office-长期"},
		{"path traversal", "长期-.."},
		{"path separator", "长期-a/b"},
		{"backslash", "长期-a\\b"},
		{"trailing explanation", "长期-Office\n理由：会议纪要"},
		{"tab inside department", "长期-Off\tice"},
		{"nul", "长期-Office\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDecision(tt.raw)
			assert.Nil(t, d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrFormat), "got %v", err)
		})
	}
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages(Request{
		Name:   "会议纪要.docx",
		Kind:   models.KindFile,
		Policy: "会议文件归办公室",
	})

	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "会议文件归办公室")
	assert.Contains(t, msgs[0].Content, "会议纪要.docx")
	for _, tier := range models.Tiers {
		assert.Contains(t, msgs[0].Content, string(tier))
	}
	assert.Equal(t, "user", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "保管期限-部门")

	dir := BuildMessages(Request{Name: "2023", Kind: models.KindDirectory})
	assert.Contains(t, dir[0].Content, "文件夹")
}
