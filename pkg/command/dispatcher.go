// Package command resolves "?command" messages against the stored
// command table and produces the reply payloads. This is the bot's
// core: everything the transport receives funnels through Dispatch.
package command

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"

	"samantha/pkg/agenda"
	"samantha/pkg/flexmsg"
	"samantha/pkg/logger"
	"samantha/pkg/movie"
	"samantha/pkg/storage"
	"samantha/pkg/usage"
)

// Marker prefixes every command message.
const Marker = "?"

const (
	replyCodeFailed   = "Gagal, coba lagi"
	replyCodeChanged  = "Kode sudah diganti menjadi "
	replyAskNewCode   = "Mau diganti sama apa kodenya?"
	replyNoMovieData  = "Belum ada data film yang bisa kutampilkan, coba lagi nanti ya!"
	helpGreeting      = "Halo! \nAku bisa bantu kru sekalian dengan beberapa perintah, diantaranya: "
	helpFooter        = "\n\nKalau masih bingung perintahnya untuk apa, coba ketik ?Help dan nama perintahnya, \nmisal: ?Help Agenda "
	helpUsageWindow   = 90
	descriptionAbsent = "-"
)

// The wardrobe-code commands historically took a single token as the
// new code while every other update command joins all arguments. The
// asymmetry predates this codebase and stored data depends on it.
var singleTokenCodeCommands = map[string]bool{
	"gantikoderulat":       true,
	"gantikodelokerdoksos": true,
	"gantikodelemarioren":  true,
}

// Dispatcher turns inbound command text into reply messages. It never
// returns an error: anything that goes wrong degrades to no reply or a
// user-facing fallback string.
type Dispatcher struct {
	store   *storage.Store
	tracker *usage.Tracker
	agenda  *agenda.Composer
	movies  *movie.Composer
	log     *logger.Logger

	now func() time.Time
}

func NewDispatcher(store *storage.Store, tracker *usage.Tracker, ag *agenda.Composer, movies *movie.Composer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		tracker: tracker,
		agenda:  ag,
		movies:  movies,
		log:     log,
		now:     time.Now,
	}
}

// Dispatch handles one inbound message. A nil result means no reply is
// sent; unknown commands and missing clearance are indistinguishable
// from the outside.
func (d *Dispatcher) Dispatch(ctx context.Context, src Source, text string) []messaging_api.MessageInterface {
	if !strings.HasPrefix(text, Marker) {
		return nil
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], Marker))
	if name == "" {
		return nil
	}
	args := fields[1:]

	cmd, err := d.store.GetCommand(ctx, name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			d.log.Error("command lookup failed", zap.String("command", name), zap.Error(err))
		}
		return nil
	}

	level := src.ClearanceLevel(ctx, d.store)
	if level < cmd.Clearance {
		return nil
	}

	d.tracker.Record(ctx, name, src.UserID())

	switch cmd.Kind {
	case storage.KindText:
		return reply(flexmsg.Text(cmd.Content))

	case storage.KindImage:
		ratio, urls, altText, err := cmd.ImagePayload()
		if err != nil || len(urls) == 0 {
			d.log.Error("malformed image command", zap.String("command", name), zap.Error(err))
			return nil
		}
		return reply(flexmsg.Bubble(altText, flexmsg.ImageBubble(ratio, urls[0])))

	case storage.KindImageCarousel:
		ratio, urls, altText, err := cmd.ImagePayload()
		if err != nil {
			d.log.Error("malformed image carousel command", zap.String("command", name), zap.Error(err))
			return nil
		}
		return flexmsg.ImageCarouselMessages(altText, ratio, urls)

	case storage.KindCode:
		code, err := d.store.GetCode(ctx, cmd.Content)
		if err != nil {
			d.log.Error("code lookup failed", zap.String("item", cmd.Content), zap.Error(err))
			return reply(flexmsg.Text(replyCodeFailed))
		}
		return reply(flexmsg.Text(code))

	case storage.KindUpdateCode:
		return d.updateCode(ctx, name, cmd.Content, args)

	case storage.KindDynamic:
		return d.dynamic(ctx, name, args, level)

	case storage.KindHelp:
		return d.help(ctx, args, level)

	default:
		d.log.Warn("command has an unknown type",
			zap.String("command", name),
			zap.String("type", cmd.RawType))
		return nil
	}
}

func (d *Dispatcher) updateCode(ctx context.Context, name, item string, args []string) []messaging_api.MessageInterface {
	if len(args) == 0 {
		return reply(flexmsg.Text(replyAskNewCode))
	}

	value := strings.Join(args, " ")
	if singleTokenCodeCommands[name] {
		value = args[0]
	}

	if err := d.store.UpdateCode(ctx, item, value); err != nil {
		d.log.Error("code update failed", zap.String("item", item), zap.Error(err))
		return reply(flexmsg.Text(replyCodeFailed))
	}

	// Read the stored value back rather than echoing the input.
	code, err := d.store.GetCode(ctx, item)
	if err != nil {
		d.log.Error("code readback failed", zap.String("item", item), zap.Error(err))
		code = replyCodeFailed
	}
	return reply(flexmsg.Text(replyCodeChanged + code))
}

func (d *Dispatcher) dynamic(ctx context.Context, name string, args []string, level int) []messaging_api.MessageInterface {
	switch name {
	case "agenda":
		days := agenda.ParseWindow(args)
		altText := "Agenda " + agenda.WindowLabel(days) + " Kedepan"
		var bubble messaging_api.FlexBubble
		if level >= storage.TypeStaff {
			bubble = d.agenda.Combined(ctx, days)
		} else {
			bubble = d.agenda.Basic(ctx, days)
		}
		return reply(flexmsg.Bubble(altText, bubble))

	case "nowshowing":
		bubbles := d.movies.NowShowing(ctx)
		if len(bubbles) == 0 {
			return reply(flexmsg.Text(replyNoMovieData))
		}
		return reply(flexmsg.Carousel("Now Showing", bubbles))

	case "upcomingmovies":
		params := movie.ParseDiscoverParams(args, d.now())
		bubbles := d.movies.Upcoming(ctx, params)
		if len(bubbles) == 0 {
			return reply(flexmsg.Text(replyNoMovieData))
		}
		return reply(flexmsg.Carousel("Upcoming Movies", bubbles))

	case "whatsopkru":
		return sopMessages()

	default:
		d.log.Warn("unknown dynamic command", zap.String("command", name))
		return nil
	}
}

func (d *Dispatcher) help(ctx context.Context, args []string, level int) []messaging_api.MessageInterface {
	if len(args) > 0 {
		target := strings.ToLower(strings.TrimPrefix(args[0], Marker))
		cmd, err := d.store.GetCommand(ctx, target)
		if err != nil || cmd.Description == "" {
			return reply(flexmsg.Text(descriptionAbsent))
		}
		return reply(flexmsg.Text(cmd.Description))
	}

	commands, err := d.store.ListCommands(ctx)
	if err != nil {
		d.log.Error("command listing failed", zap.Error(err))
		return nil
	}

	var basic, staff []string
	for _, cmd := range commands {
		if cmd.Kind == storage.KindHelp {
			continue
		}
		if cmd.Clearance >= storage.TypeStaff {
			staff = append(staff, cmd.Name)
		} else {
			basic = append(basic, cmd.Name)
		}
	}
	d.sortByUsage(ctx, basic)

	var sb strings.Builder
	sb.WriteString(helpGreeting)
	for _, name := range basic {
		sb.WriteString("\n  • ?" + name)
	}
	if level >= storage.TypeStaff && len(staff) > 0 {
		sb.WriteString("\n")
		for _, name := range staff {
			sb.WriteString("\n  • ?" + name)
		}
	}
	sb.WriteString(helpFooter)
	return reply(flexmsg.Text(sb.String()))
}

// sortByUsage orders names by how often they were called recently, most
// used first. Names without recent calls keep their stored order after
// the ranked ones.
func (d *Dispatcher) sortByUsage(ctx context.Context, names []string) {
	report, err := d.tracker.FrequencyReport(ctx, helpUsageWindow)
	if err != nil {
		d.log.Warn("frequency report failed", zap.Error(err))
		return
	}

	rank := make(map[string]int, len(report))
	for i, row := range report {
		rank[row.Command] = i
	}

	sort.SliceStable(names, func(i, j int) bool {
		ri, oki := rank[names[i]]
		rj, okj := rank[names[j]]
		switch {
		case oki && okj:
			return ri < rj
		case oki:
			return true
		default:
			return false
		}
	})
}

func reply(messages ...messaging_api.MessageInterface) []messaging_api.MessageInterface {
	return messages
}
