package terminal

import (
	"fmt"
	"io"
	"sync"

	"github.com/zhouzirui/sentichat/internal/format"
	"github.com/zhouzirui/sentichat/internal/model/chat"
)

// clearLine erases the typing indicator line.
const clearLine = "\r\x1b[2K"

// View prints conversation events as terminal lines.
type View struct {
	mu       sync.Mutex
	out      io.Writer
	styles   Styles
	typing   bool
	composer bool
}

// NewView returns a view writing to out with the composer enabled.
func NewView(out io.Writer, styles Styles) *View {
	return &View{out: out, styles: styles, composer: true}
}

func (v *View) AppendMessage(msg chat.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.clearTypingLocked()
	stamp := v.styles.Time.Render("[" + format.Timestamp(msg.Timestamp) + "]")
	if !msg.IsBot() {
		fmt.Fprintf(v.out, "%s %s %s\n", stamp, v.styles.User.Render("You:"), msg.Text)
		return
	}

	tag := v.styles.category(msg.Sentiment).Render(fmt.Sprintf("(%s %.2f)", msg.Sentiment.Title(), msg.SentimentScore))
	fmt.Fprintf(v.out, "%s %s %s %s\n", stamp, v.styles.Bot.Render("Bot:"), msg.Text, tag)
}

func (v *View) ShowTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.typing {
		return
	}
	v.typing = true
	fmt.Fprint(v.out, v.styles.Typing.Render("Bot is typing..."))
}

func (v *View) HideTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearTypingLocked()
}

func (v *View) ShowError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearTypingLocked()
	fmt.Fprintln(v.out, v.styles.Error.Render("! "+message))
}

func (v *View) SetComposerEnabled(enabled bool) {
	v.mu.Lock()
	v.composer = enabled
	v.mu.Unlock()
}

// FocusComposer prints the input prompt when the composer accepts input.
func (v *View) FocusComposer() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.composer {
		fmt.Fprint(v.out, v.styles.Prompt.Render("> "))
	}
}

// ComposerEnabled reports whether input is currently accepted.
func (v *View) ComposerEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.composer
}

// Typing reports whether the typing indicator is shown.
func (v *View) Typing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.typing
}

func (v *View) clearTypingLocked() {
	if !v.typing {
		return
	}
	v.typing = false
	fmt.Fprint(v.out, clearLine)
}
