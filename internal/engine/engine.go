// Package engine maps a free-text question to a knowledge base reply.
//
// Matching is deliberately plain: the utterance is lowercased and every keyword
// of an entry that occurs in it as a substring adds one point. The highest
// scoring entry wins, ties go to the entry declared first, and a zero score
// produces the fallback reply.
package engine

import (
	"fmt"
	"strings"

	"github.com/ashureev/datadesk/internal/knowledge"
)

// Result is the outcome of classifying one utterance.
type Result struct {
	Intent   string   `json:"intent,omitempty"`
	Score    int      `json:"score"`
	Response string   `json:"response"`
	Fallback bool     `json:"fallback"`
	Related  []string `json:"related,omitempty"`
}

// Engine scores utterances against a knowledge base.
type Engine struct {
	entries []knowledge.Entry
}

// New creates an engine over kb. A nil kb uses the compiled-in table.
func New(kb *knowledge.Base) *Engine {
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Engine{entries: kb.Entries()}
}

// Match returns the reply text for an utterance. It never fails.
func (e *Engine) Match(utterance string) string {
	return e.Classify(utterance).Response
}

// Classify returns the best entry for an utterance, or the fallback.
func (e *Engine) Classify(utterance string) Result {
	normalized := strings.ToLower(utterance)

	best := -1
	bestScore := 0
	for i, entry := range e.entries {
		score := Score(normalized, entry.Keywords)
		// Strict comparison keeps the earliest entry on a tie.
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 {
		return Result{Response: Fallback(utterance), Fallback: true}
	}

	entry := e.entries[best]
	return Result{
		Intent:   entry.Intent,
		Score:    bestScore,
		Response: entry.Response,
		Related:  append([]string(nil), entry.Related...),
	}
}

// Score counts the keywords contained in an already-lowercased utterance.
// Repeated occurrences of one keyword count once.
func Score(normalized string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(normalized, strings.ToLower(kw)) {
			score++
		}
	}
	return score
}

// Fallback builds the reply used when no entry matches. The utterance is echoed as given.
func Fallback(utterance string) string {
	return fmt.Sprintf("我理解您的問題：\"%s\"。\n\n"+
		"目前我可以協助您處理以下操作：\n"+
		"• 數據上傳和導入\n"+
		"• 創建圖表和視覺化\n"+
		"• 數據篩選和查詢\n"+
		"• 結果匯出和下載\n\n"+
		"請告訴我您想了解哪個功能的詳細操作步驟？", utterance)
}
