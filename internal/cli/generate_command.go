package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/model"
	"clipforge/internal/session"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	focusScript = iota
	focusDuration
	focusTitle
)

type generateModel struct {
	cfg    config.Config
	client *api.Client
	log    *slog.Logger
	sess   *session.Session

	script  textarea.Model
	title   textinput.Model
	authTok textinput.Model
	durIdx  int
	focus   int

	spin spinner.Model
	bar  progress.Model

	submitting bool
	formError  string
	width      int
	height     int
}

// submitResultMsg carries the outcome of the one-shot creation request.
type submitResultMsg struct {
	token  uint64
	jobID  string
	errMsg string
	failed bool
}

// pollTickMsg fires on the polling cadence. Ticks from a torn-down session
// carry a stale token and are dropped without issuing a fetch.
type pollTickMsg struct {
	token uint64
}

// pollResultMsg carries one status fetch result.
type pollResultMsg struct {
	token uint64
	resp  model.StatusResponse
	err   error
}

var (
	genTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	genMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	genErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	genOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	genPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	genSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path (default ~/.config/clipforge/config.yaml)")
	apiURL := fs.String("api", "", "API base URL override")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("generate requires an interactive terminal (TTY)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *apiURL != "" {
		cfg.APIBaseURL = strings.TrimRight(*apiURL, "/")
	}

	// The TUI owns the terminal; logs go to the file only.
	log, cleanup := config.SetupLogger(cfg.LogFile, cfg.Level(), true)
	defer func() { _ = cleanup() }()

	m := newGenerateModel(cfg, log)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newGenerateModel(cfg config.Config, log *slog.Logger) generateModel {
	capability := session.AuthDisabled
	authToken := ""
	if cfg.AuthMode == config.AuthModeBearer {
		capability = session.AuthBearer
		authToken = cfg.AuthToken
	}

	sess := session.New(capability)
	if capability == session.AuthBearer && authToken != "" {
		sess.MarkAuthenticated()
	}

	script := textarea.New()
	script.Placeholder = "Paste or write your video script here..."
	script.CharLimit = 0
	script.SetWidth(72)
	script.SetHeight(8)
	script.Focus()

	title := textinput.New()
	title.Prompt = "> "
	title.Placeholder = cfg.DefaultTitle
	title.CharLimit = 200
	title.Width = 60

	authTok := textinput.New()
	authTok.Prompt = "> "
	authTok.Placeholder = "paste your API token"
	authTok.EchoMode = textinput.EchoPassword
	authTok.CharLimit = 2048
	authTok.Width = 60
	authTok.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = genTitleStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 50

	return generateModel{
		cfg:     cfg,
		client:  api.New(cfg.APIBaseURL, authToken),
		log:     log,
		sess:    sess,
		script:  script,
		title:   title,
		authTok: authTok,
		spin:    spin,
		bar:     bar,
	}
}

func (m generateModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick)
}

func (m generateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.script.SetWidth(clampInt(m.width-10, 30, 100))
		m.bar.Width = clampInt(m.width-20, 20, 70)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case submitResultMsg:
		return m.updateSubmitResult(msg)

	case pollTickMsg:
		return m.updatePollTick(msg)

	case pollResultMsg:
		return m.updatePollResult(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if keyMsg.String() == "ctrl+c" {
		m.sess.Invalidate()
		return m, tea.Quit
	}

	switch m.sess.Screen() {
	case session.ScreenAuth:
		return m.updateAuth(keyMsg)
	case session.ScreenInput:
		return m.updateInput(keyMsg)
	case session.ScreenProgress:
		return m.updateProgress(keyMsg)
	case session.ScreenDownload:
		return m.updateDownload(keyMsg)
	default:
		return m, nil
	}
}

func (m generateModel) updateSubmitResult(msg submitResultMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.failed {
		if !m.sess.ApplySubmitFailure(msg.token, msg.errMsg) {
			return m, nil
		}
		m.log.Warn("submission failed", "error", m.sess.ErrorMessage())
		return m, nil
	}
	if !m.sess.ApplySubmitSuccess(msg.token, msg.jobID) {
		m.log.Info("discarding stale submit result", "job_id", msg.jobID)
		return m, nil
	}
	m.log.Info("job submitted", "job_id", msg.jobID)
	return m, pollTick(m.cfg.PollInterval(), m.sess.Token())
}

func (m generateModel) updatePollTick(msg pollTickMsg) (tea.Model, tea.Cmd) {
	if msg.token != m.sess.Token() {
		return m, nil // tick from a reset or torn-down session
	}
	job, ok := m.sess.Job()
	if !ok || model.IsTerminal(job.Status) {
		return m, nil
	}
	fetchToken := m.sess.NextToken()
	return m, tea.Batch(
		fetchStatusCmd(m.client, job.JobID, fetchToken),
		pollTick(m.cfg.PollInterval(), fetchToken),
	)
}

func (m generateModel) updatePollResult(msg pollResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		// Transient fetch failures are absorbed here; the tick chain
		// keeps running until a terminal status or an explicit stop.
		m.log.Warn("status fetch failed, retrying on next tick", "error", msg.err)
		return m, nil
	}

	outcome, applied := m.sess.ApplyStatus(msg.token, msg.resp)
	if !applied {
		m.log.Debug("discarding stale status response", "job_id", msg.resp.JobID)
		return m, nil
	}

	switch outcome {
	case session.OutcomeCompleted:
		m.log.Info("job completed", "job_id", msg.resp.JobID)
	case session.OutcomeCompletedNoResult:
		m.log.Error("job completed without a result payload", "job_id", msg.resp.JobID)
	case session.OutcomeFailed:
		m.log.Warn("job failed", "job_id", msg.resp.JobID, "error", m.sess.ErrorMessage())
	}
	return m, nil
}

func (m generateModel) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "enter":
		token := strings.TrimSpace(m.authTok.Value())
		if token == "" {
			m.formError = "token is required"
			return m, nil
		}
		m.formError = ""
		m.client = api.New(m.cfg.APIBaseURL, token)
		m.sess.MarkAuthenticated()
		return m, nil
	}
	var cmd tea.Cmd
	m.authTok, cmd = m.authTok.Update(msg)
	return m, cmd
}

func (m generateModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.sess.Invalidate()
		return m, tea.Quit
	case "tab", "down":
		return m.moveFocus(1), nil
	case "shift+tab", "up":
		return m.moveFocus(-1), nil
	case "ctrl+s":
		return m.submit()
	case "left", "right", " ":
		if m.focus == focusDuration {
			step := 1
			if msg.String() == "left" {
				step = -1
			}
			n := len(model.DurationLabels)
			m.durIdx = (m.durIdx + step + n) % n
			return m, nil
		}
	case "enter":
		switch m.focus {
		case focusDuration:
			return m.moveFocus(1), nil
		case focusTitle:
			return m.submit()
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusScript:
		m.script, cmd = m.script.Update(msg)
	case focusTitle:
		m.title, cmd = m.title.Update(msg)
	}
	return m, cmd
}

func (m generateModel) updateProgress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.sess.Invalidate()
		return m, tea.Quit
	case "r":
		return m.startOver(), nil
	}
	return m, nil
}

func (m generateModel) updateDownload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "enter":
		m.sess.Invalidate()
		return m, tea.Quit
	case "r", "n":
		return m.startOver(), nil
	}
	return m, nil
}

// startOver is the explicit reset: clears the session (orphaning any
// in-flight work) and presents a fresh input form.
func (m generateModel) startOver() generateModel {
	m.sess.Reset()
	m.script.Reset()
	m.title.SetValue("")
	m.durIdx = 0
	m.focus = focusScript
	m.formError = ""
	m.submitting = false
	m.script.Focus()
	m.title.Blur()
	return m
}

func (m generateModel) moveFocus(step int) generateModel {
	m.focus = clampInt(m.focus+step, focusScript, focusTitle)
	if m.focus == focusScript {
		m.script.Focus()
	} else {
		m.script.Blur()
	}
	if m.focus == focusTitle {
		m.title.Focus()
	} else {
		m.title.Blur()
	}
	return m
}

func (m generateModel) submit() (tea.Model, tea.Cmd) {
	script := strings.TrimSpace(m.script.Value())
	if script == "" {
		m.formError = "script is required"
		return m, nil
	}
	m.formError = ""

	label := model.DurationLabels[m.durIdx]
	seconds := model.ResolveDurationSeconds(label)
	title := strings.TrimSpace(m.title.Value())
	if title == "" {
		title = m.cfg.DefaultTitle
	}

	token := m.sess.BeginSubmit()
	m.submitting = true
	m.log.Info("submitting job", "duration_label", label, "duration_seconds", seconds, "title", title)
	return m, submitCmd(m.client, token, script, seconds, title)
}

func submitCmd(client *api.Client, token uint64, script string, durationSeconds int, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		jobID, err := client.SubmitJob(ctx, script, durationSeconds, title)
		if err != nil {
			msg := ""
			var reqErr *api.RequestError
			if errors.As(err, &reqErr) {
				msg = reqErr.Message
			}
			return submitResultMsg{token: token, failed: true, errMsg: msg}
		}
		return submitResultMsg{token: token, jobID: jobID}
	}
}

func pollTick(interval time.Duration, token uint64) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return pollTickMsg{token: token}
	})
}

func fetchStatusCmd(client *api.Client, jobID string, token uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		resp, err := client.GetJobStatus(ctx, jobID)
		return pollResultMsg{token: token, resp: resp, err: err}
	}
}

func (m generateModel) View() string {
	if m.width <= 0 {
		m.width = 100
	}

	switch m.sess.Screen() {
	case session.ScreenAuth:
		return m.viewAuth()
	case session.ScreenProgress:
		return m.viewProgress()
	case session.ScreenDownload:
		return m.viewDownload()
	default:
		return m.viewInput()
	}
}

func (m generateModel) viewAuth() string {
	header := genTitleStyle.Render("clipforge generate")
	hints := genMutedStyle.Render("enter: continue | esc: quit")
	lines := []string{
		"API token required",
		"",
		m.authTok.View(),
	}
	if m.formError != "" {
		lines = append(lines, "", genErrorStyle.Render(m.formError))
	}
	panel := genPanelStyle.Width(clampInt(m.width-4, 40, 80)).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, hints, panel)
}

func (m generateModel) viewInput() string {
	header := genTitleStyle.Render("clipforge generate")
	hints := genMutedStyle.Render("tab/shift+tab: move | left/right: duration | ctrl+s: generate | esc: quit")

	marker := func(field int) string {
		if m.focus == field {
			return "> "
		}
		return "  "
	}

	durationLine := marker(focusDuration) + "Duration: "
	for i, label := range model.DurationLabels {
		text := fmt.Sprintf(" %s min ", label)
		if i == m.durIdx {
			text = genSelStyle.Render(text)
		} else {
			text = genMutedStyle.Render(text)
		}
		durationLine += text
	}

	lines := []string{
		marker(focusScript) + "Script:",
		m.script.View(),
		"",
		durationLine,
		"",
		marker(focusTitle) + "Title: " + m.title.View(),
	}

	if m.submitting {
		lines = append(lines, "", genMutedStyle.Render("Submitting..."))
	}
	if m.formError != "" {
		lines = append(lines, "", genErrorStyle.Render(m.formError))
	}
	if errMsg := m.sess.ErrorMessage(); errMsg != "" {
		lines = append(lines, "", genErrorStyle.Render(errMsg))
	}

	panel := genPanelStyle.Width(clampInt(m.width-4, 50, 110)).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, hints, panel)
}

func (m generateModel) viewProgress() string {
	header := genTitleStyle.Render("clipforge generate")
	hints := genMutedStyle.Render("r: start over | q: quit")

	job, ok := m.sess.Job()
	if !ok {
		return lipgloss.JoinVertical(lipgloss.Left, header, hints)
	}

	status := fmt.Sprintf("%s %s", m.spin.View(), job.Status)
	if model.IsTerminal(job.Status) {
		status = job.Status
	}

	lines := []string{
		status,
		"",
		m.bar.ViewAs(float64(job.Progress) / 100.0),
		fmt.Sprintf("%d%%", job.Progress),
	}
	if job.CurrentStep != "" {
		lines = append(lines, "", truncateRunes(job.CurrentStep, 70))
	}
	if job.ETASeconds != nil {
		if eta := formatETA(*job.ETASeconds); eta != "" {
			lines = append(lines, genMutedStyle.Render("ETA "+eta))
		}
	}
	if errMsg := m.sess.ErrorMessage(); errMsg != "" {
		lines = append(lines, "", genErrorStyle.Render(errMsg), genMutedStyle.Render("Press r to start over."))
	}
	lines = append(lines, "", genMutedStyle.Render("job "+job.JobID))

	panel := genPanelStyle.Width(clampInt(m.width-4, 50, 90)).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, hints, panel)
}

func (m generateModel) viewDownload() string {
	header := genTitleStyle.Render("clipforge generate")
	hints := genMutedStyle.Render("r/n: create another | q/enter: quit")

	job, ok := m.sess.Job()
	if !ok || job.Result == nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, hints)
	}
	res := job.Result

	lines := []string{
		genOKStyle.Render("Video ready!"),
		"",
		"Premiere Pro: " + res.PremiereURL,
		"CapCut:       " + res.CapcutURL,
		"",
		fmt.Sprintf("%d clips, %d AI images", res.ClipsCount, res.ImagesCount),
		genMutedStyle.Render("links expire " + res.ExpiresAt),
		"",
		genMutedStyle.Render("job " + job.JobID),
	}

	panel := genPanelStyle.Width(clampInt(m.width-4, 50, 100)).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, hints, panel)
}
