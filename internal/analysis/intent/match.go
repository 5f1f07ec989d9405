package intent

import (
	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/analysis/lexicon"
)

// Stage records which part of the rule set produced a result.
type Stage string

const (
	StagePrimary  Stage = "primary"
	StageExtended Stage = "extended"
	StageFallback Stage = "fallback"
)

// Result is the outcome of matching one utterance.
type Result struct {
	Category Category
	Reply    string
	Keyword  string
	Path     string
	Stage    Stage
}

func fallback() Result {
	return Result{Category: Default, Reply: string(Default), Stage: StageFallback}
}

// Match classifies text against the rule table of tag. The first rule whose
// keyword set overlaps the utterance wins. Non-default languages only ever
// consult their own table; the extended battery exists for the default language.
func Match(text string, tag language.Tag) Result {
	table, ok := compiled[tag]
	if !ok {
		table = compiled[language.Default]
		tag = language.Default
	}

	normalized := lexicon.Normalize(text)

	if res, ok := firstMatch(table.primary, normalized, StagePrimary); ok {
		return res
	}
	if tag.IsDefault() {
		if res, ok := firstMatch(table.extended, normalized, StageExtended); ok {
			return res
		}
	}
	return fallback()
}

func firstMatch(rules []compiledRule, normalized string, stage Stage) (Result, bool) {
	for _, rule := range rules {
		kw, ok := lexicon.FirstIn(rule.keywords, normalized)
		if !ok {
			continue
		}
		return Result{
			Category: rule.Category,
			Reply:    rule.Reply,
			Keyword:  kw.String(),
			Path:     rule.Path,
			Stage:    stage,
		}, true
	}
	return Result{}, false
}
