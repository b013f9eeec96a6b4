package mdtriage

import (
	"sort"
	"strings"

	"alertx/internal/app/domains/entity/ettriage"
)

// 权重分档
const (
	weightCritical = 12
	weightHigh     = 7
	weightMedium   = 3
	weightLow      = 1
	weightModifier = 3
)

// 累计权重阈值
const (
	thresholdCritical = 12
	thresholdHigh     = 7
	thresholdMedium   = 3
)

type keyword struct {
	phrase   string
	tokens   []string
	weight   int
	category ettriage.Category // 修饰词为空
}

func (k keyword) modifier() bool {
	return k.category == ""
}

// bandOf 单个关键词权重对应的子等级
func bandOf(weight int) ettriage.Severity {
	switch {
	case weight >= weightCritical:
		return ettriage.SeverityCritical
	case weight >= weightHigh:
		return ettriage.SeverityHigh
	case weight >= weightMedium:
		return ettriage.SeverityMedium
	default:
		return ettriage.SeverityLow
	}
}

// tierOf 累计权重对应的等级
func tierOf(total int) ettriage.Severity {
	switch {
	case total >= thresholdCritical:
		return ettriage.SeverityCritical
	case total >= thresholdHigh:
		return ettriage.SeverityHigh
	case total >= thresholdMedium:
		return ettriage.SeverityMedium
	default:
		return ettriage.SeverityLow
	}
}

type entry struct {
	phrase   string
	weight   int
	category ettriage.Category
}

var keywordEntries = []entry{
	// cardiac
	{"cardiac arrest", weightCritical, ettriage.CategoryCardiac},
	{"heart attack", weightCritical, ettriage.CategoryCardiac},
	{"no pulse", weightCritical, ettriage.CategoryCardiac},
	{"chest pain", weightHigh, ettriage.CategoryCardiac},
	{"chest tightness", weightHigh, ettriage.CategoryCardiac},
	{"irregular heartbeat", weightHigh, ettriage.CategoryCardiac},
	{"palpitations", weightMedium, ettriage.CategoryCardiac},
	{"heart disease", weightMedium, ettriage.CategoryCardiac},

	// respiratory
	{"not breathing", weightCritical, ettriage.CategoryRespiratory},
	{"choking", weightCritical, ettriage.CategoryRespiratory},
	{"drowning", weightCritical, ettriage.CategoryRespiratory},
	{"difficulty breathing", weightHigh, ettriage.CategoryRespiratory},
	{"shortness of breath", weightHigh, ettriage.CategoryRespiratory},
	{"asthma attack", weightHigh, ettriage.CategoryRespiratory},
	{"wheezing", weightMedium, ettriage.CategoryRespiratory},
	{"asthma", weightMedium, ettriage.CategoryRespiratory},
	{"cough", weightLow, ettriage.CategoryRespiratory},

	// neurological
	{"stroke", weightCritical, ettriage.CategoryNeurological},
	{"unconscious", weightCritical, ettriage.CategoryNeurological},
	{"unresponsive", weightCritical, ettriage.CategoryNeurological},
	{"seizure", weightCritical, ettriage.CategoryNeurological},
	{"slurred speech", weightHigh, ettriage.CategoryNeurological},
	{"facial droop", weightHigh, ettriage.CategoryNeurological},
	{"confusion", weightHigh, ettriage.CategoryNeurological},
	{"fainted", weightHigh, ettriage.CategoryNeurological},
	{"numbness", weightMedium, ettriage.CategoryNeurological},
	{"dizziness", weightMedium, ettriage.CategoryNeurological},
	{"epilepsy", weightMedium, ettriage.CategoryNeurological},
	{"headache", weightLow, ettriage.CategoryNeurological},

	// bleeding
	{"severe bleeding", weightCritical, ettriage.CategoryBleeding},
	{"bleeding heavily", weightCritical, ettriage.CategoryBleeding},
	{"vomiting blood", weightHigh, ettriage.CategoryBleeding},
	{"deep cut", weightHigh, ettriage.CategoryBleeding},
	{"bleeding", weightMedium, ettriage.CategoryBleeding},
	{"nosebleed", weightLow, ettriage.CategoryBleeding},
	{"minor cut", weightLow, ettriage.CategoryBleeding},

	// poisoning
	{"overdose", weightCritical, ettriage.CategoryPoisoning},
	{"poisoning", weightHigh, ettriage.CategoryPoisoning},
	{"swallowed chemicals", weightHigh, ettriage.CategoryPoisoning},
	{"carbon monoxide", weightHigh, ettriage.CategoryPoisoning},
	{"poison", weightHigh, ettriage.CategoryPoisoning},
	{"vomiting", weightMedium, ettriage.CategoryPoisoning},
	{"nausea", weightLow, ettriage.CategoryPoisoning},

	// allergic
	{"anaphylaxis", weightCritical, ettriage.CategoryAllergic},
	{"throat swelling", weightCritical, ettriage.CategoryAllergic},
	{"allergic reaction", weightHigh, ettriage.CategoryAllergic},
	{"swelling", weightMedium, ettriage.CategoryAllergic},
	{"hives", weightMedium, ettriage.CategoryAllergic},
	{"rash", weightLow, ettriage.CategoryAllergic},

	// burn
	{"electrocuted", weightCritical, ettriage.CategoryBurn},
	{"third degree burn", weightCritical, ettriage.CategoryBurn},
	{"chemical burn", weightHigh, ettriage.CategoryBurn},
	{"smoke inhalation", weightHigh, ettriage.CategoryBurn},
	{"burn", weightMedium, ettriage.CategoryBurn},
	{"burned", weightMedium, ettriage.CategoryBurn},
	{"minor burn", weightLow, ettriage.CategoryBurn},
	{"sunburn", weightLow, ettriage.CategoryBurn},

	// fracture
	{"open fracture", weightHigh, ettriage.CategoryFracture},
	{"broken bone", weightHigh, ettriage.CategoryFracture},
	{"fracture", weightMedium, ettriage.CategoryFracture},
	{"dislocated", weightMedium, ettriage.CategoryFracture},
	{"sprain", weightLow, ettriage.CategoryFracture},

	// trauma
	{"gunshot", weightCritical, ettriage.CategoryTrauma},
	{"stabbed", weightCritical, ettriage.CategoryTrauma},
	{"car accident", weightHigh, ettriage.CategoryTrauma},
	{"head injury", weightHigh, ettriage.CategoryTrauma},
	{"fall", weightMedium, ettriage.CategoryTrauma},
	{"injury", weightMedium, ettriage.CategoryTrauma},
	{"bruise", weightLow, ettriage.CategoryTrauma},

	// general
	{"high fever", weightMedium, ettriage.CategoryGeneral},
	{"dehydration", weightMedium, ettriage.CategoryGeneral},
	{"fever", weightLow, ettriage.CategoryGeneral},
	{"sore throat", weightLow, ettriage.CategoryGeneral},
	{"pain", weightLow, ettriage.CategoryGeneral},

	// 修饰词：只加权重，不投类别票
	{"severe", weightModifier, ""},
	{"sudden", weightModifier, ""},
	{"extreme", weightModifier, ""},
	{"intense", weightModifier, ""},
	{"heavy", weightModifier, ""},
}

// entityCategories 语言分析实体（身体部位/症状）到类别，仅用于平票裁决
var entityCategories = map[string]ettriage.Category{
	"heart":   ettriage.CategoryCardiac,
	"chest":   ettriage.CategoryCardiac,
	"lung":    ettriage.CategoryRespiratory,
	"lungs":   ettriage.CategoryRespiratory,
	"airway":  ettriage.CategoryRespiratory,
	"breath":  ettriage.CategoryRespiratory,
	"head":    ettriage.CategoryNeurological,
	"brain":   ettriage.CategoryNeurological,
	"blood":   ettriage.CategoryBleeding,
	"wound":   ettriage.CategoryBleeding,
	"stomach": ettriage.CategoryPoisoning,
	"skin":    ettriage.CategoryBurn,
	"bone":    ettriage.CategoryFracture,
	"arm":     ettriage.CategoryFracture,
	"leg":     ettriage.CategoryFracture,
	"wrist":   ettriage.CategoryFracture,
	"ankle":   ettriage.CategoryFracture,
}

var urgencyTiers = map[string]ettriage.Severity{
	"immediate": ettriage.SeverityCritical,
	"urgent":    ettriage.SeverityHigh,
	"soon":      ettriage.SeverityMedium,
	"routine":   ettriage.SeverityLow,
	"critical":  ettriage.SeverityCritical,
	"high":      ettriage.SeverityHigh,
	"medium":    ettriage.SeverityMedium,
	"low":       ettriage.SeverityLow,
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "with": {}, "my": {}, "i": {},
	"is": {}, "in": {}, "on": {}, "at": {}, "to": {}, "have": {}, "has": {}, "am": {},
	"are": {}, "was": {}, "it": {}, "me": {}, "some": {}, "very": {},
}

// keywordIndex 首词 -> 候选关键词（按词数降序，保证最长匹配）
type keywordIndex map[string][]keyword

func buildIndex(entries []entry) keywordIndex {
	idx := make(keywordIndex)
	for _, e := range entries {
		tokens := tokenize(e.phrase)
		if len(tokens) == 0 {
			continue
		}
		idx[tokens[0]] = append(idx[tokens[0]], keyword{
			phrase:   e.phrase,
			tokens:   tokens,
			weight:   e.weight,
			category: e.category,
		})
	}
	for first := range idx {
		cands := idx[first]
		sort.SliceStable(cands, func(i, j int) bool {
			return len(cands[i].tokens) > len(cands[j].tokens)
		})
	}
	return idx
}

// tokenize 小写、按非字母数字切分、去停用词
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// match 从左到右贪心最长匹配，返回命中关键词（按出现顺序）和被覆盖的词数
func (idx keywordIndex) match(tokens []string) ([]keyword, int) {
	var hits []keyword
	covered := 0
	for i := 0; i < len(tokens); {
		matched := false
		for _, kw := range idx[tokens[i]] {
			if hasPrefix(tokens[i:], kw.tokens) {
				hits = append(hits, kw)
				covered += len(kw.tokens)
				i += len(kw.tokens)
				matched = true
				break
			}
		}
		if !matched {
			i++
		}
	}
	return hits, covered
}

func hasPrefix(tokens, prefix []string) bool {
	if len(prefix) > len(tokens) {
		return false
	}
	for i := range prefix {
		if tokens[i] != prefix[i] {
			return false
		}
	}
	return true
}
