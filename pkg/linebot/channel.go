// Package linebot is the LINE webhook transport: it decodes inbound
// events, routes command text to the dispatcher, and delivers the reply
// payloads through the Messaging API.
package linebot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"

	"samantha/pkg/command"
	"samantha/pkg/config"
	"samantha/pkg/flexmsg"
	"samantha/pkg/logger"
	"samantha/pkg/movie"
	"samantha/pkg/storage"
)

const (
	stickerPackage     = "11537"
	stickerWave        = "52002734"
	stickerPlease      = "52002739"
	registerKeyword    = "?Register"
	movieDetailsAlt    = "Movie Details"
	welcomeTemplate    = "Halo, %s! Kenalkan aku Samantha, bot untuk membantu kru LFM. Kalau penasaran aku bisa membantu apa saja, kirim aja \n`?Help`"
	regretTemplate     = "Halo, %s! Kenalkan aku Samantha, bot untuk membantu kru LFM. Tampaknya kamu tidak ada di Muda Beo. Maaf, aku tidak bisa membantumu."
	onboardingReply    = "Oh iya, coba dulu yuk kirim `?Agenda` atau `?NowShowing`, atau pencet aja menu yang udah disediain!"
	privacyNotice      = "Omong-omong, aku akan merekam kapan dan fitur apa yang kalian gunakan ya. Kalau kalian tidak mau, karena belum ada sistem untuk opt-out, berkabar saja supaya rekamannya dihapus."
	groupJoinReply     = "Halo kru! Aku perlu catat nama grupnya dulu nih, tolong kirim ?Register dan nama grupnya. Contoh: ?Register LFM Muda Beo. Terus kalau udah, kabarin ke Ivan yaa. \nTerimakasih!"
	roomApologyReply   = "Halo! Maaf belum bisa bantu di multichat nih. Hehe"
)

// Sender is the outbound side of the Messaging API the channel needs.
type Sender interface {
	Reply(replyToken string, messages []messaging_api.MessageInterface) error
	Profile(userID string) (*messaging_api.UserProfileResponse, error)
	// GroupMemberProfile probes whether the user is a member of the
	// group; only existence matters.
	GroupMemberProfile(groupID, userID string) error
	LeaveRoom(roomID string) error
}

type apiSender struct {
	api *messaging_api.MessagingApiAPI
}

func (s *apiSender) Reply(replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := s.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

func (s *apiSender) Profile(userID string) (*messaging_api.UserProfileResponse, error) {
	return s.api.GetProfile(userID)
}

func (s *apiSender) GroupMemberProfile(groupID, userID string) error {
	_, err := s.api.GetGroupMemberProfile(groupID, userID)
	return err
}

func (s *apiSender) LeaveRoom(roomID string) error {
	_, err := s.api.LeaveRoom(roomID)
	return err
}

// Channel handles one LINE Messaging API channel.
type Channel struct {
	sender     Sender
	dispatcher *command.Dispatcher
	movies     *movie.Composer
	store      *storage.Store
	log        *logger.Logger

	channelSecret string
	crewGroupID   string
}

func New(cfg config.LineConfig, dispatcher *command.Dispatcher, movies *movie.Composer, store *storage.Store, log *logger.Logger) (*Channel, error) {
	api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging api client: %w", err)
	}
	c := newChannel(cfg, dispatcher, movies, store, log)
	c.sender = &apiSender{api: api}
	return c, nil
}

func newChannel(cfg config.LineConfig, dispatcher *command.Dispatcher, movies *movie.Composer, store *storage.Store, log *logger.Logger) *Channel {
	return &Channel{
		dispatcher:    dispatcher,
		movies:        movies,
		store:         store,
		log:           log,
		channelSecret: cfg.ChannelSecret,
		crewGroupID:   cfg.CrewGroupID,
	}
}

// HandleRequest verifies and processes one webhook delivery. A non-nil
// error means the request was not a valid LINE callback and should get
// a 400; event-level failures are logged and absorbed so LINE does not
// redeliver.
func (c *Channel) HandleRequest(r *http.Request) error {
	cb, err := webhook.ParseRequest(c.channelSecret, r)
	if err != nil {
		c.log.Warn("webhook rejected", zap.Error(err))
		return err
	}

	ctx := r.Context()
	for _, event := range cb.Events {
		c.handleEvent(ctx, event)
	}
	return nil
}

func (c *Channel) handleEvent(ctx context.Context, event webhook.EventInterface) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		c.handleMessage(ctx, e)
	case webhook.FollowEvent:
		c.handleFollow(ctx, e)
	case webhook.UnfollowEvent:
		c.handleUnfollow(ctx, e)
	case webhook.JoinEvent:
		c.handleJoin(ctx, e)
	case webhook.PostbackEvent:
		c.handlePostback(ctx, e)
	}
}

func (c *Channel) handleMessage(ctx context.Context, e webhook.MessageEvent) {
	text, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		return
	}
	if !strings.HasPrefix(text.Text, command.Marker) {
		return
	}

	src := sourceOf(e.Source)
	fields := strings.Fields(text.Text)

	// Group registration rides on the message path so any member can
	// do it right after the bot joins.
	if len(fields) > 0 && fields[0] == registerKeyword {
		if group, ok := src.(command.Group); ok {
			name := strings.Join(fields[1:], " ")
			if err := c.store.AddGroup(ctx, group.ID, name); err != nil {
				c.log.Error("group registration failed",
					zap.String("group_id", group.ID), zap.Error(err))
			}
		}
	}

	c.reply(e.ReplyToken, c.dispatcher.Dispatch(ctx, src, text.Text))
}

func (c *Channel) handleFollow(ctx context.Context, e webhook.FollowEvent) {
	user, ok := e.Source.(webhook.UserSource)
	if !ok {
		return
	}

	profile, err := c.sender.Profile(user.UserId)
	if err != nil {
		c.log.Error("profile fetch failed", zap.String("user_id", user.UserId), zap.Error(err))
		return
	}

	// Membership in the crew group decides the initial tier.
	userType := storage.TypeUnregistered
	if err := c.sender.GroupMemberProfile(c.crewGroupID, user.UserId); err == nil {
		userType = storage.TypeCrew
	}

	if err := c.store.AddFollower(ctx, &storage.Follower{
		UserID:      profile.UserId,
		DisplayName: profile.DisplayName,
		PictureURL:  profile.PictureUrl,
		Type:        userType,
	}); err != nil {
		c.log.Error("follower insert failed", zap.String("user_id", profile.UserId), zap.Error(err))
	}

	if userType == storage.TypeCrew {
		c.reply(e.ReplyToken, []messaging_api.MessageInterface{
			flexmsg.Text(fmt.Sprintf(welcomeTemplate, profile.DisplayName)),
			flexmsg.Sticker(stickerPackage, stickerWave),
			flexmsg.Text(onboardingReply),
			flexmsg.Text(privacyNotice),
		})
		return
	}
	c.reply(e.ReplyToken, []messaging_api.MessageInterface{
		flexmsg.Text(fmt.Sprintf(regretTemplate, profile.DisplayName)),
	})
}

func (c *Channel) handleUnfollow(ctx context.Context, e webhook.UnfollowEvent) {
	user, ok := e.Source.(webhook.UserSource)
	if !ok {
		return
	}
	if err := c.store.RemoveFollower(ctx, user.UserId); err != nil {
		c.log.Error("follower removal failed", zap.String("user_id", user.UserId), zap.Error(err))
	}
}

func (c *Channel) handleJoin(_ context.Context, e webhook.JoinEvent) {
	switch src := e.Source.(type) {
	case webhook.GroupSource:
		c.reply(e.ReplyToken, []messaging_api.MessageInterface{
			flexmsg.Text(groupJoinReply),
			flexmsg.Sticker(stickerPackage, stickerPlease),
		})
	case webhook.RoomSource:
		c.reply(e.ReplyToken, []messaging_api.MessageInterface{
			flexmsg.Text(roomApologyReply),
		})
		if err := c.sender.LeaveRoom(src.RoomId); err != nil {
			c.log.Error("leaving room failed", zap.String("room_id", src.RoomId), zap.Error(err))
		}
	}
}

func (c *Channel) handlePostback(ctx context.Context, e webhook.PostbackEvent) {
	if e.Postback == nil {
		return
	}
	movieID, err := strconv.ParseInt(strings.TrimSpace(e.Postback.Data), 10, 64)
	if err != nil {
		return
	}

	bubble, ok := c.movies.Details(ctx, movieID)
	if !ok {
		return
	}
	c.reply(e.ReplyToken, []messaging_api.MessageInterface{
		flexmsg.Bubble(movieDetailsAlt, bubble),
	})
}

func (c *Channel) reply(replyToken string, messages []messaging_api.MessageInterface) {
	if len(messages) == 0 {
		return
	}
	if len(messages) > flexmsg.MaxMessagesPerReply {
		messages = messages[:flexmsg.MaxMessagesPerReply]
	}
	if err := c.sender.Reply(replyToken, messages); err != nil {
		c.log.Error("reply failed", zap.Error(err))
	}
}

func sourceOf(src webhook.SourceInterface) command.Source {
	switch s := src.(type) {
	case webhook.UserSource:
		return command.User{ID: s.UserId}
	case webhook.GroupSource:
		return command.Group{ID: s.GroupId, SenderID: s.UserId}
	case webhook.RoomSource:
		return command.Room{ID: s.RoomId, SenderID: s.UserId}
	default:
		return command.User{}
	}
}
