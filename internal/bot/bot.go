// Package bot is the Telegram surface: on-demand commands for the
// next events plus the channel announcer used by the daily cycle.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/EduardaSRBastos/astro-alert/internal/almanac"
	"github.com/EduardaSRBastos/astro-alert/internal/geolocate"
	"github.com/EduardaSRBastos/astro-alert/internal/notify"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

// commandTimeout bounds one command's ephemeris work. The first
// eclipse scan for a date is the expensive case; later calls hit the
// almanac caches.
const commandTimeout = 60 * time.Second

type Config struct {
	Token       string
	Channel     string
	PollTimeout time.Duration
}

// channelRecipient lets "@channelname" act as a telebot recipient
// without resolving it to a numeric ID first.
type channelRecipient string

func (r channelRecipient) Recipient() string { return string(r) }

// Service owns the telebot instance.
type Service struct {
	bot *tele.Bot
	log logx.Logger

	chanMu  sync.Mutex
	channel tele.Recipient

	phases  *almanac.PhaseResolver
	eclipse *almanac.EclipseScanner
	geo     *geolocate.Resolver

	// limiter paces channel sends below the Telegram flood limit.
	limiter *rate.Limiter
	now     func() time.Time

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(cfg Config, phases *almanac.PhaseResolver, eclipse *almanac.EclipseScanner, geo *geolocate.Resolver, log logx.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	channel, err := parseChannel(cfg.Channel)
	if err != nil {
		return nil, err
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		bot:     b,
		channel: channel,
		log:     log,
		phases:  phases,
		eclipse: eclipse,
		geo:     geo,
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		now:     time.Now,
	}
	s.register()
	return s, nil
}

func parseChannel(raw string) (tele.Recipient, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("telegram channel is empty")
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return tele.ChatID(id), nil
	}
	if !strings.HasPrefix(raw, "@") {
		raw = "@" + raw
	}
	return channelRecipient(raw), nil
}

func (s *Service) register() {
	s.bot.Handle("/nextphase", s.handleNextPhase)
	s.bot.Handle("/nextfullmoon", s.handleNextFullMoon)
	s.bot.Handle("/phases", s.handlePhases)
	s.bot.Handle("/eclipses", s.handleEclipses)
	s.bot.Handle("/today", s.handleToday)
	s.bot.Handle("/help", s.handleHelp)
	s.bot.Handle("/start", s.handleHelp)
}

// Start begins long polling. Non-blocking; Stop unwinds it.
func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return nil
	}
	s.running = true
	rctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.runMu.Unlock()

	if err := s.bot.SetCommands(commandMenu()); err != nil {
		s.log.Warn("set command menu failed", logx.Err(err))
	}

	go func() {
		defer s.wg.Done()
		go func() {
			<-rctx.Done()
			s.bot.Stop()
		}()
		s.log.Info("polling started", logx.String("bot", s.bot.Me.Username))
		s.bot.Start()
	}()
	return nil
}

func (s *Service) Stop() {
	s.runMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	wasRunning := s.running
	s.running = false
	s.runMu.Unlock()
	if !wasRunning {
		return
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func commandMenu() []tele.Command {
	return []tele.Command{
		{Text: "nextphase", Description: "Next moon phase transition"},
		{Text: "nextfullmoon", Description: "Next full moon"},
		{Text: "phases", Description: "Moon phases in the next 30 days"},
		{Text: "eclipses", Description: "Next solar and lunar eclipse"},
		{Text: "today", Description: "Today's overview"},
		{Text: "help", Description: "What this bot does"},
	}
}

// SetChannel swaps the announcement target on config reload.
func (s *Service) SetChannel(raw string) error {
	channel, err := parseChannel(raw)
	if err != nil {
		return err
	}
	s.chanMu.Lock()
	s.channel = channel
	s.chanMu.Unlock()
	return nil
}

// sendToChannel paces and delivers one announcement line.
func (s *Service) sendToChannel(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	s.chanMu.Lock()
	channel := s.channel
	s.chanMu.Unlock()
	_, err := s.bot.Send(channel, text)
	return err
}

// Announce delivers a cycle digest, one message per item. A failed
// line is logged and the rest still go out.
func (s *Service) Announce(ctx context.Context, d notify.Digest) error {
	var firstErr error
	for _, line := range renderDigest(d) {
		if err := s.sendToChannel(ctx, line); err != nil {
			s.log.Warn("announcement send failed", logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SendLogLine lets the logger mirror warn+ lines into the channel.
func (s *Service) SendLogLine(ctx context.Context, text string) error {
	return s.sendToChannel(ctx, text)
}

func (s *Service) handleNextPhase(c tele.Context) error {
	ev, ok, err := s.phases.NextPhase(s.now().UTC())
	if err != nil {
		return c.Send(renderError(err))
	}
	if !ok {
		return c.Send("No phase transition found in the next 30 days.")
	}
	loc := s.resolve()
	return c.Send(renderPhase(ev, loc))
}

func (s *Service) handleNextFullMoon(c tele.Context) error {
	ev, ok, err := s.phases.NextFullMoon(s.now().UTC())
	if err != nil {
		return c.Send(renderError(err))
	}
	if !ok {
		return c.Send("No full moon found in the next 30 days.")
	}
	loc := s.resolve()
	return c.Send("🌕 Next full moon: " + stampAt(ev.At, loc))
}

func (s *Service) handlePhases(c tele.Context) error {
	events, err := s.phases.Upcoming(s.now().UTC())
	if err != nil {
		return c.Send(renderError(err))
	}
	loc := s.resolve()
	return c.Send(renderPhaseList(events, loc))
}

func (s *Service) handleEclipses(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	loc := s.resolve()
	now := s.now().UTC()
	var b strings.Builder

	solar, ok, err := s.eclipse.NextSolar(ctx, loc.Observer(), now)
	switch {
	case err != nil:
		b.WriteString(renderError(err))
	case ok:
		b.WriteString(renderSolar(solar, loc))
	default:
		b.WriteString("No solar eclipse found in the next 5 years.")
	}
	b.WriteString("\n")

	lunar, ok, err := s.eclipse.NextLunar(ctx, loc.Observer(), now)
	switch {
	case err != nil:
		b.WriteString(renderError(err))
	case ok:
		b.WriteString(renderLunar(lunar, loc))
	default:
		b.WriteString("No visible lunar eclipse found in the next 5 years.")
	}
	return c.Send(b.String())
}

func (s *Service) handleToday(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	now := s.now().UTC()
	loc := s.resolve()
	var b strings.Builder
	b.WriteString("📅 " + formatDate(now, loc) + " — " + loc.Region + "\n")

	if ev, ok, err := s.phases.NextPhase(now); err != nil {
		b.WriteString(renderError(err) + "\n")
	} else if ok {
		b.WriteString(renderPhase(ev, loc) + "\n")
	}
	if solar, ok, err := s.eclipse.NextSolar(ctx, loc.Observer(), now); err == nil && ok {
		b.WriteString(renderSolar(solar, loc) + "\n")
	}
	if lunar, ok, err := s.eclipse.NextLunar(ctx, loc.Observer(), now); err == nil && ok {
		b.WriteString(renderLunar(lunar, loc))
	}
	return c.Send(strings.TrimRight(b.String(), "\n"))
}

func (s *Service) handleHelp(c tele.Context) error {
	return c.Send(helpText)
}

func (s *Service) resolve() geolocate.Location {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.geo.Resolve(ctx)
}

const helpText = `Astro Alert tracks the sky for you:

/nextphase — next moon phase transition
/nextfullmoon — next full moon
/phases — all phases in the next 30 days
/eclipses — next solar and lunar eclipse
/today — today's overview

Daily announcements are posted to the channel automatically,
with reminders 12 hours and 2 hours before each event.`
