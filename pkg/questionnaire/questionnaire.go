// Package questionnaire provides the ordered question sequences the session
// engine walks a user through for each calculation kind. Lookup is pure:
// no I/O, no mutable state, unknown kinds yield an empty sequence.
package questionnaire

// Kind identifies a calculation kind.
type Kind string

const (
	// KindFielder is the position-player WAR calculation.
	KindFielder Kind = "fielder"

	// KindPitcher is the pitcher WAR calculation.
	KindPitcher Kind = "pitcher"
)

// Valid reports whether k is a known calculation kind.
func (k Kind) Valid() bool {
	return k == KindFielder || k == KindPitcher
}

// Question is a single step of a questionnaire.
type Question struct {
	// Key is the record key sent to the calculation backend.
	Key string

	// Prompt is the full question text shown in the conversation.
	Prompt string

	// Label is the short field name used by the recalculation picker and
	// the pasted-stats parser.
	Label string
}

// fielderQuestions is ordered; the engine advances through it by index.
var fielderQuestions = []Question{
	{Key: "plateAppearance", Prompt: "打席数を入力してください", Label: "打席"},
	{Key: "atBat", Prompt: "打数を入力してください", Label: "打数"},
	{Key: "hit", Prompt: "安打数を入力してください", Label: "安打"},
	{Key: "doubleHit", Prompt: "二塁打数を入力してください", Label: "二塁打"},
	{Key: "triple", Prompt: "三塁打数を入力してください", Label: "三塁打"},
	{Key: "homeRun", Prompt: "本塁打数を入力してください", Label: "本塁打"},
	{Key: "walk", Prompt: "四球を入力してください", Label: "四球"},
	{Key: "hbp", Prompt: "死球を入力してください", Label: "死球"},
	{Key: "steal", Prompt: "盗塁数を入力してください", Label: "盗塁"},
	{Key: "caughtStealing", Prompt: "盗塁死数を入力してください", Label: "盗塁死"},
	{Key: "doublePlay", Prompt: "併殺打数を入力してください", Label: "併殺打"},
	{Key: "error", Prompt: "失策数を入力してください", Label: "失策"},
	{Key: "finePlay", Prompt: "好守備を入力してください", Label: "好守備"},
	{Key: "catchStealing", Prompt: "捕手: 盗塁刺数を入力してください (捕手以外は0)", Label: "盗塁刺"},
	{Key: "stolenBasesAllowed", Prompt: "捕手: 許盗塁数を入力してください (捕手以外は0)", Label: "許盗塁"},
	{Key: "cGame", Prompt: "捕手としての出場試合数", Label: "捕手試合"},
	{Key: "fbGame", Prompt: "一塁手としての出場試合数", Label: "一塁試合"},
	{Key: "sbGame", Prompt: "二塁手としての出場試合数", Label: "二塁試合"},
	{Key: "tbGame", Prompt: "三塁手としての出場試合数", Label: "三塁試合"},
	{Key: "ssGame", Prompt: "遊撃手としての出場試合数", Label: "遊撃試合"},
	{Key: "lfGame", Prompt: "左翼手としての出場試合数", Label: "左翼試合"},
	{Key: "cfGame", Prompt: "中堅手としての出場試合数", Label: "中堅試合"},
	{Key: "rfGame", Prompt: "右翼手としての出場試合数", Label: "右翼試合"},
	{Key: "dhGame", Prompt: "指名打者としての出場試合数", Label: "DH試合"},
}

var pitcherQuestions = []Question{
	{Key: "innings", Prompt: "投球回を入力してください (例: 143回1/3 -> 143.333)", Label: "投球回"},
	{Key: "earnedRuns", Prompt: "自責点を入力してください", Label: "自責点"},
	{Key: "hitsAllowed", Prompt: "被安打数を入力してください", Label: "被安打"},
	{Key: "homeRunsAllowed", Prompt: "被本塁打数を入力してください", Label: "被本塁打"},
	{Key: "walksAllowed", Prompt: "与四球数を入力してください", Label: "与四球"},
	{Key: "hitBatsmen", Prompt: "与死球数を入力してください", Label: "与死球"},
	{Key: "strikeouts", Prompt: "奪三振数を入力してください", Label: "奪三振"},
	{Key: "appearances", Prompt: "登板数を入力してください", Label: "登板"},
	{Key: "starts", Prompt: "先発数を入力してください", Label: "先発"},
}

// QuestionsFor returns the ordered question sequence for the given kind.
// Unknown kinds return an empty sequence, not an error; callers must guard
// against starting a session over zero questions. The returned slice is a
// copy and safe for callers to hold.
func QuestionsFor(kind Kind) []Question {
	var src []Question
	switch kind {
	case KindFielder:
		src = fielderQuestions
	case KindPitcher:
		src = pitcherQuestions
	default:
		return nil
	}

	out := make([]Question, len(src))
	copy(out, src)
	return out
}

// Lookup returns the question with the given key for the kind, if any.
func Lookup(kind Kind, key string) (Question, bool) {
	for _, q := range QuestionsFor(kind) {
		if q.Key == key {
			return q, true
		}
	}
	return Question{}, false
}
