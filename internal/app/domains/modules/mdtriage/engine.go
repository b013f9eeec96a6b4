package mdtriage

import (
	"math"
	"sort"
	"strings"

	"alertx/internal/app/domains/entity/ettriage"
)

// Engine 关键词分诊引擎
// 关键词表在构造时一次性建好，之后只读，可并发使用
type Engine struct {
	index keywordIndex
}

// NewEngine 创建分诊引擎
func NewEngine() *Engine {
	return &Engine{index: buildIndex(keywordEntries)}
}

type contribution struct {
	kw    keyword
	order int
}

// Classify 纯函数：输入 + 可选语言分析 -> 分诊结果
func (e *Engine) Classify(in *ettriage.SymptomInput, insight *ettriage.Insight) *ettriage.TriageResult {
	if in == nil {
		in = &ettriage.SymptomInput{}
	}

	descTokens := tokenize(in.Description)
	descHits, descCovered := e.index.match(descTokens)

	totalTokens := len(descTokens)
	matchedTokens := descCovered

	// 描述和快捷标签是两个独立来源，同一关键词在各自来源内只计一次
	contribs := make([]contribution, 0, len(descHits))
	seen := make(map[string]bool)
	order := 0
	for _, kw := range descHits {
		if seen[kw.phrase] {
			continue
		}
		seen[kw.phrase] = true
		contribs = append(contribs, contribution{kw: kw, order: order})
		order++
	}

	tagSeen := make(map[string]bool)
	for _, tag := range in.QuickSymptoms {
		tagTokens := tokenize(tag)
		hits, covered := e.index.match(tagTokens)
		totalTokens += len(tagTokens)
		matchedTokens += covered
		for _, kw := range hits {
			if tagSeen[kw.phrase] {
				continue
			}
			tagSeen[kw.phrase] = true
			contribs = append(contribs, contribution{kw: kw, order: order})
			order++
		}
	}

	total := 0
	votes := make(map[ettriage.Category]int)
	symptomMatched := false
	for _, c := range contribs {
		total += c.kw.weight
		if !c.kw.modifier() {
			votes[c.kw.category] += c.kw.weight
			symptomMatched = true
		}
	}

	// 既往病史只投类别票，不影响严重度
	if symptomMatched && in.Patient != nil {
		for _, cond := range in.Patient.KnownConditions {
			hits, _ := e.index.match(tokenize(cond))
			for _, kw := range hits {
				if !kw.modifier() {
					votes[kw.category]++
				}
			}
		}
	}

	severity := tierOf(total)
	if insight.Escalates() {
		severity = severity.Raise(1)
	}
	severity = applyUrgency(severity, in.Urgency)

	return &ettriage.TriageResult{
		Severity:   severity,
		Confidence: confidence(matchedTokens, totalTokens),
		Symptoms:   detectedSymptoms(contribs),
		Category:   pickCategory(votes, insight),
		Insight:    insight,
	}
}

// applyUrgency 自述紧急程度只能上调，且最多一级
func applyUrgency(computed ettriage.Severity, urgency string) ettriage.Severity {
	tier, ok := urgencyTiers[strings.ToLower(strings.TrimSpace(urgency))]
	if !ok {
		return computed
	}
	capped := computed.Raise(1)
	if tier.Rank() < capped.Rank() {
		capped = tier
	}
	return ettriage.Max(computed, capped)
}

func confidence(matched, total int) int {
	if total == 0 {
		return 0
	}
	c := int(math.Round(float64(matched) * 100 / float64(total)))
	if c > 100 {
		c = 100
	}
	return c
}

// pickCategory 最高票胜出；平票时由语言分析实体裁决，仍平则为 general
func pickCategory(votes map[ettriage.Category]int, insight *ettriage.Insight) ettriage.Category {
	best := 0
	var tied []ettriage.Category
	for _, cat := range ettriage.Categories {
		v := votes[cat]
		switch {
		case v > best:
			best = v
			tied = []ettriage.Category{cat}
		case v == best && v > 0:
			tied = append(tied, cat)
		}
	}

	if best == 0 {
		return ettriage.CategoryGeneral
	}
	if len(tied) == 1 {
		return tied[0]
	}
	if insight != nil {
		if cat, ok := breakTie(tied, insight.Entities); ok {
			return cat
		}
	}
	return ettriage.CategoryGeneral
}

func breakTie(tied []ettriage.Category, entities []string) (ettriage.Category, bool) {
	candidates := make(map[ettriage.Category]int, len(tied))
	for _, c := range tied {
		candidates[c] = 0
	}
	for _, ent := range entities {
		cat, ok := entityCategories[strings.ToLower(strings.TrimSpace(ent))]
		if !ok {
			continue
		}
		if _, ok := candidates[cat]; ok {
			candidates[cat]++
		}
	}

	best := 0
	var winner ettriage.Category
	unique := false
	for _, c := range tied {
		switch n := candidates[c]; {
		case n > best:
			best, winner, unique = n, c, true
		case n == best && n > 0:
			unique = false
		}
	}
	return winner, unique
}

func detectedSymptoms(contribs []contribution) []ettriage.DetectedSymptom {
	type ranked struct {
		phrase string
		weight int
		order  int
	}
	byPhrase := make(map[string]*ranked)
	for _, c := range contribs {
		if c.kw.modifier() {
			continue
		}
		if _, ok := byPhrase[c.kw.phrase]; !ok {
			byPhrase[c.kw.phrase] = &ranked{phrase: c.kw.phrase, weight: c.kw.weight, order: c.order}
		}
	}

	list := make([]*ranked, 0, len(byPhrase))
	for _, r := range byPhrase {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].weight != list[j].weight {
			return list[i].weight > list[j].weight
		}
		return list[i].order < list[j].order
	})

	out := make([]ettriage.DetectedSymptom, 0, len(list))
	for _, r := range list {
		out = append(out, ettriage.DetectedSymptom{Symptom: r.phrase, Severity: bandOf(r.weight)})
	}
	return out
}
