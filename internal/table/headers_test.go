package table

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderToKey(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		// pt-BR
		{"Produto", KeyProduct},
		{"Popularidade", KeyPopularity},
		{"Variação", KeyPopularityChange},
		{"Mudança", KeyPopularityChange},
		{"CTR", KeyCTR},
		{"Taxa de cliques", KeyCTR},
		{"CVR", KeyCVR},
		{"Taxa de conversão", KeyCVR},
		{"CPA", KeyCPA},
		{"Custo por aquisição", KeyCPA},
		{"Custo", KeyCost},
		{"Impressões", KeyImpressions},
		{"Curtidas", KeyLikes},
		{"Comentários", KeyComments},
		{"Compartilhamentos", KeyShares},
		{"Taxa de visualização", KeyViewRate},
		{"Visualizações de 6s", KeyViewRate6s},
		// en
		{"Product", KeyProduct},
		{"Popularity", KeyPopularity},
		{"Popularity change", KeyPopularityChange},
		{"Click Through Rate", KeyCTR},
		{"Click-through rate", KeyCTR},
		{"Conversion rate", KeyCVR},
		{"Cost per acquisition", KeyCPA},
		{"Cost", KeyCost},
		{"Impressions", KeyImpressions},
		{"Likes", KeyLikes},
		{"Comments", KeyComments},
		{"Shares", KeyShares},
		{"View rate", KeyViewRate},
		{"6s", KeyViewRate6s},
		// formatting noise
		{"  product\n name ", KeyProduct},
		{"ctr (%)", KeyCTR},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.expected, HeaderToKey(tt.header))
		})
	}
}

func TestHeaderToKeyPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"cpa listed before cost", "CPA cost", KeyCPA},
		{"cpa wins regardless of word order", "Cost (CPA)", KeyCPA},
		{"pt popularity before change", "Mudança de popularidade", KeyPopularity},
		{"change before en popularity", "Popularity change", KeyPopularityChange},
		{"ctr before cost", "Cost CTR", KeyCTR},
		{"view rate before 6s", "6s view rate", KeyViewRate},
		{"likes before shares", "Likes and shares", KeyLikes},
		{"pt product before everything", "Produto (custo)", KeyProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HeaderToKey(tt.header))
		})
	}
}

func TestDefaultHeaderRulesOrder(t *testing.T) {
	var keys []string
	for _, r := range DefaultHeaderRules() {
		keys = append(keys, r.Key)
	}

	assert.Equal(t, []string{
		KeyProduct,
		KeyPopularity,
		KeyPopularityChange,
		KeyCTR,
		KeyCVR,
		KeyCPA,
		KeyCost,
		KeyImpressions,
		KeyLikes,
		KeyComments,
		KeyShares,
		KeyViewRate,
		KeyViewRate6s,
		KeyProduct,
		KeyPopularity,
	}, keys)
}

func TestHeaderToKeySlugFallback(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"Empty", "", ""},
		{"Diacritics stripped", "Taxa de Retenção", "taxa_de_retencao"},
		{"Punctuation collapsed", "Vendas / Dia (R$)", "vendas_dia_r"},
		{"Leading and trailing symbols", "--Rank--", "rank"},
		{"Digits kept", "Top 10 região", "top_10_regiao"},
		{"Only symbols", "???", ""},
		{"Non latin dropped", "排名", ""},
		{"Truncated", strings.Repeat("q", 60), strings.Repeat("q", 40)},
		{"Truncation does not leave underscore", strings.Repeat("q", 39) + " zz", strings.Repeat("q", 39)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HeaderToKey(tt.header))
		})
	}
}

func TestHeaderToKeyIsBoundedAndDeterministic(t *testing.T) {
	canonical := map[string]bool{}
	for _, r := range DefaultHeaderRules() {
		canonical[r.Key] = true
	}
	identifier := regexp.MustCompile(`^[a-z0-9_]*$`)

	inputs := []string{
		"",
		" ",
		"_",
		"__a__",
		"Ñandú Über Straße",
		"Ação!!! 123 ###",
		"\t\n",
		"emoji 🚀 rocket",
		strings.Repeat("ab-", 40),
		strings.Repeat("é", 100),
		"Receita (USD) • últimos 7 dias",
	}

	for _, in := range inputs {
		key := HeaderToKey(in)
		assert.Equal(t, key, HeaderToKey(in), "input %q", in)

		if canonical[key] {
			continue
		}
		assert.LessOrEqual(t, len(key), MaxSlugLength, "input %q", in)
		assert.Regexp(t, identifier, key, "input %q", in)
		assert.False(t, strings.HasPrefix(key, "_"), "input %q", in)
		assert.False(t, strings.HasSuffix(key, "_"), "input %q", in)
	}
}

func TestHeaderMapperCustomRules(t *testing.T) {
	mapper := NewHeaderMapper([]HeaderRule{
		{Key: "gmv", Patterns: []string{"gmv", "receita"}},
	})

	assert.Equal(t, "gmv", mapper.Key("Receita total"))
	assert.Equal(t, "product", mapper.Key("Product"), "unknown to custom rules, slugified")
	assert.Equal(t, []string{"gmv", "ctr"}, mapper.Keys([]string{"GMV", "CTR"}))

	rules := mapper.Rules()
	require.Len(t, rules, 1)
	rules[0].Key = "changed"
	assert.Equal(t, "gmv", mapper.Rules()[0].Key)
}
