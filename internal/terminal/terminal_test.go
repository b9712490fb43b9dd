package terminal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
	"github.com/zhouzirui/sentichat/internal/analytics"
	"github.com/zhouzirui/sentichat/internal/chart"
	raw "github.com/zhouzirui/sentichat/internal/model/analytics"
	"github.com/zhouzirui/sentichat/internal/model/chat"
)

func newTestView() (*View, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewView(&buf, NewStyles(&buf, chart.DefaultTheme())), &buf
}

func TestViewPrintsMessages(t *testing.T) {
	v, buf := newTestView()
	at := time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC)

	v.AppendMessage(chat.Message{ID: 1, Sender: chat.SenderUser, Text: "hello", Timestamp: at})
	v.AppendMessage(chat.Message{ID: 2, Sender: chat.SenderBot, Text: "Hi!", Sentiment: sentiment.Positive, SentimentScore: 0.5, Timestamp: at})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "2:05 PM")
	require.Contains(t, lines[0], "You:")
	require.Contains(t, lines[0], "hello")
	require.Contains(t, lines[1], "Bot:")
	require.Contains(t, lines[1], "Positive 0.50")
}

func TestViewTypingIndicator(t *testing.T) {
	v, buf := newTestView()

	v.ShowTyping()
	v.ShowTyping()
	require.True(t, v.Typing())
	require.Equal(t, 1, strings.Count(buf.String(), "typing"))

	v.HideTyping()
	require.False(t, v.Typing())
	require.True(t, strings.HasSuffix(buf.String(), clearLine))

	v.HideTyping()
	require.Equal(t, 1, strings.Count(buf.String(), clearLine))
}

func TestViewComposer(t *testing.T) {
	v, buf := newTestView()

	v.SetComposerEnabled(false)
	v.FocusComposer()
	require.False(t, v.ComposerEnabled())
	require.Empty(t, buf.String())

	v.SetComposerEnabled(true)
	v.FocusComposer()
	require.Contains(t, buf.String(), ">")
}

func TestViewErrorClearsTyping(t *testing.T) {
	v, buf := newTestView()

	v.ShowTyping()
	v.ShowError("Sorry, I couldn't reach the server. Please try again.")
	require.False(t, v.Typing())
	require.Contains(t, buf.String(), "couldn't reach the server")
}

func TestRendererDrawsDistribution(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf, chart.DefaultTheme())
	r := NewRenderer(&buf, styles)

	dist, err := analytics.BuildDistribution(raw.RawDistribution{
		Labels: []string{"Positive", "Negative", "Neutral"},
		Values: []int{6, 3, 1},
	})
	require.NoError(t, err)
	spec, err := chart.Build(dist, chart.KindDoughnut, chart.DefaultTheme())
	require.NoError(t, err)

	inst, err := r.Bind("sentimentChart", spec)
	require.NoError(t, err)
	require.Equal(t, 1, r.Live("sentimentChart"))

	out := buf.String()
	require.Contains(t, out, "Sentiment Distribution")
	require.Contains(t, out, "Positive: 6 (60.0%)")
	require.Contains(t, out, strings.Repeat("█", 18))
	require.Contains(t, out, "Neutral: 1 (10.0%)")

	require.NoError(t, inst.Destroy())
	require.NoError(t, inst.Destroy())
	require.Equal(t, 0, r.Live("sentimentChart"))
}

func TestRendererDrawsTimeline(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, NewStyles(&buf, chart.DefaultTheme()))

	tl, err := analytics.BuildTimeline(raw.RawTimeline{
		Dates:    []string{"2024-03-01", "2024-03-02", "2024-03-03"},
		Positive: []int{0, 4, 8},
		Negative: []int{1, 1, 1},
		Neutral:  []int{0, 0, 0},
	})
	require.NoError(t, err)
	spec, err := chart.Build(tl, chart.KindLine, chart.DefaultTheme())
	require.NoError(t, err)

	_, err = r.Bind("timelineChart", spec)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "▁▄█")
	require.Contains(t, out, "total 12")
	require.Contains(t, out, "3/1 to 3/3")
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf, chart.DefaultTheme())

	dist, err := analytics.BuildDistribution(raw.RawDistribution{
		Labels: []string{"Positive", "Negative", "Neutral"},
		Values: []int{1, 3, 0},
	})
	require.NoError(t, err)

	RenderSummary(&buf, styles, analytics.Summarize(dist))
	out := buf.String()
	require.Contains(t, out, "4 messages")
	require.Contains(t, out, "3 (75.0%)")
	require.Contains(t, out, "Negative")
}

func TestSparklineFlat(t *testing.T) {
	require.Equal(t, "▁▁", sparkline([]int{0, 0}))
}
