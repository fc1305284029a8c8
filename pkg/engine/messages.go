package engine

import (
	"fmt"
	"strconv"

	"github.com/pennantware/warbot/pkg/calc"
	"github.com/pennantware/warbot/pkg/chat"
	"github.com/pennantware/warbot/pkg/questionnaire"
	"github.com/pennantware/warbot/pkg/session"
)

// Control tokens recognized before numeric parsing.
const (
	tokenEnd  = "!end"
	tokenBack = "!back"
)

// Component custom-ID prefixes. The session's channel key rides in the
// custom ID so interactions route back without platform-side state.
const (
	CustomIDFieldPicker = "war:field:"
	CustomIDEndButton   = "war:end:"
)

// resultEmbedColor is the accent color of result embeds.
const resultEmbedColor = 0x3498DB

// User-visible strings. The bot serves a Japanese league; wording follows
// the production bot.
const (
	msgThreadCreated   = "プライベートスレッドを作成しました。こちらへどうぞ ▶ <#%s>"
	msgThreadFailed    = "!!!エラー: スレッドを作成できませんでした。!!!"
	msgSessionEnded    = "セッションを強制終了しました。"
	msgNoFurtherBack   = "これ以上前に戻ることはできません。"
	msgBackOne         = "一つ前の質問に戻りました。**(%d/%d)** %s"
	msgTimedOut        = "タイムアウトしました。"
	msgNotANumber      = "!!!数字を入力してください。(中断する場合は `!end` または `!back`)!!!"
	msgNegativeNumber  = "!!!正の数を入力してください。!!!"
	msgCalculating     = "計算中..."
	msgCalcDone        = "**計算完了!**"
	msgCalcFailed      = "!!!APIエラー: 計算サーバーへの接続に失敗しました。管理者に連絡してください。!!!"
	msgSessionGone     = "このセッションは有効期限切れか、終了しています。新しい計算を行うには、再度コマンドを実行してください。"
	msgEditPrompt      = "**%s** の現在の値は %s です。新しい値を入力してください。"
	msgPickerTitle     = "修正したい項目を選択してください"
	msgEndButtonLabel  = "終了"
	msgSessionControls = "(中断したい場合は \"!end\" や \"!back\" と入力してください)"
)

// firstPrompt builds the opening message of a session thread.
func firstPrompt(sess *session.Session, questions []questionnaire.Question, notifyRoleID string) string {
	mention := ""
	if notifyRoleID != "" {
		mention = fmt.Sprintf("\n(通知: <@&%s>)", notifyRoleID)
	}
	return fmt.Sprintf("%s <@%s> **(1/%d)** %s\n%s",
		mention, sess.OwnerID, len(questions), questions[0].Prompt, msgSessionControls)
}

// questionPrompt formats the current question with its progress counter.
func questionPrompt(step int, questions []questionnaire.Question) string {
	return fmt.Sprintf("**(%d/%d)** %s", step+1, len(questions), questions[step].Prompt)
}

// formatAnswer renders a stored answer the way the user typed it: integral
// values without a decimal tail.
func formatAnswer(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// resultMessage builds the result display: embed plus, when the session is
// still live, the recalculation picker and end button.
func resultMessage(sess *session.Session, result *calc.Result, withControls bool) chat.Message {
	kindName := "野手"
	if sess.Kind == questionnaire.KindPitcher {
		kindName = "投手"
	}

	embed := &chat.Embed{
		Title:       fmt.Sprintf("WAR計算結果 (%d年 / %sリーグ)", sess.Year, sess.League),
		Description: fmt.Sprintf("**%s** の計算が完了しました。", kindName),
		Color:       resultEmbedColor,
	}
	for _, key := range result.Keys() {
		embed.Fields = append(embed.Fields, chat.EmbedField{
			Name:   calc.Label(key),
			Value:  result.Value(key),
			Inline: true,
		})
	}

	msg := chat.Message{
		Content: msgCalcDone,
		Embed:   embed,
	}
	if !withControls {
		return msg
	}

	picker := &chat.Picker{
		CustomID:    CustomIDFieldPicker + sess.ChannelID,
		Placeholder: msgPickerTitle,
	}
	for _, q := range questionnaire.QuestionsFor(sess.Kind) {
		picker.Options = append(picker.Options, chat.PickerOption{
			Label:       q.Label,
			Value:       q.Key,
			Description: "現在: " + formatAnswer(sess.Answers[q.Key]),
		})
	}
	msg.Picker = picker
	msg.Buttons = []chat.Button{{
		CustomID: CustomIDEndButton + sess.ChannelID,
		Label:    msgEndButtonLabel,
		Danger:   true,
	}}
	return msg
}
