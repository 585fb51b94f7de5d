// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/rigchat-tui/internal/api"
	"github.com/jeranaias/rigchat-tui/internal/model"
	"github.com/jeranaias/rigchat-tui/internal/store"
	"github.com/jeranaias/rigchat-tui/internal/stream"
)

// DefaultThrottle coalesces store writes during streaming: at most one
// content publication per interval, so high chunk rates do not translate
// into one re-render per token.
const DefaultThrottle = 50 * time.Millisecond

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyMessage is returned by Send when there is nothing to send.
	ErrEmptyMessage = errors.New("message needs content or an attachment")

	// ErrChatBusy is returned when the chat already has an active stream.
	ErrChatBusy = errors.New("chat is already streaming")

	// ErrNoActiveStream is returned by Cancel when nothing is streaming.
	ErrNoActiveStream = errors.New("no active stream for chat")

	// ErrNotLatestMessage rejects retrying anything but the chat's most
	// recent message.
	ErrNotLatestMessage = errors.New("only the most recent message can be retried")

	// ErrNotAssistant rejects retrying a non-assistant message.
	ErrNotAssistant = errors.New("only assistant messages can be retried")
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Transport is the server-facing surface the controller drives. Implemented
// by *api.Client; faked in tests.
type Transport interface {
	OpenStream(ctx context.Context, req api.SendRequest) (*stream.Iterator, error)
	SendFallback(ctx context.Context, req api.SendRequest) (*stream.Iterator, error)
	RetryStream(ctx context.Context, chatID, messageID string) (*stream.Iterator, error)
	CancelStream(ctx context.Context, req api.CancelRequest) (*api.CancelResponse, error)
	FetchChat(ctx context.Context, chatID string) (*api.FetchChatResponse, error)
	GenerateTitle(ctx context.Context, chatID string) (string, error)
	UploadAttachment(ctx context.Context, filename, fileType string, data []byte) (*api.AttachmentInfo, error)
}

// Recorder receives durable exchanges after reconciliation, e.g. for the
// local transcript history. Optional.
type Recorder interface {
	Record(chatID string, msgs []model.Message) error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives stream sessions against a message store.
type Controller struct {
	store     *store.SessionStore
	transport Transport
	recorder  Recorder
	throttle  time.Duration

	mu     sync.Mutex
	active map[string]*streamSession
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder attaches a transcript recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithThrottle overrides the store publication interval.
func WithThrottle(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.throttle = d
		}
	}
}

// SetThrottle updates the store publication interval for subsequently
// opened streams. Safe to call while streams are active; in-flight sessions
// keep the interval they started with. Used by config hot reload.
func (c *Controller) SetThrottle(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.throttle = d
	c.mu.Unlock()
}

func (c *Controller) throttleInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.throttle
}

// NewController creates a controller over the given store and transport.
func NewController(st *store.SessionStore, t Transport, opts ...Option) *Controller {
	c := &Controller{
		store:     st,
		transport: t,
		throttle:  DefaultThrottle,
		active:    make(map[string]*streamSession),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// STREAM SESSION
// =============================================================================

// streamSession is the transient state of one in-flight send or retry,
// owned exclusively by the controller.
type streamSession struct {
	chatID          string
	modelID         string
	tempUserID      model.MessageID
	tempAssistantID model.MessageID
	abort           context.CancelFunc

	mu          sync.Mutex
	accumulated string
	cancelled   bool
}

func (s *streamSession) apply(u stream.Update) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Replace {
		s.accumulated = u.Text
	} else {
		s.accumulated += u.Text
	}
	return s.accumulated
}

func (s *streamSession) snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated
}

func (s *streamSession) markCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

func (s *streamSession) wasCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// begin registers a session for the chat, enforcing the one-session-per-
// chat rule against both the active table and the store's streaming flag.
func (c *Controller) begin(chatID, modelID string) (*streamSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[chatID]; ok {
		return nil, ErrChatBusy
	}
	if c.store.IsStreaming(chatID) {
		return nil, ErrChatBusy
	}
	sess := &streamSession{chatID: chatID, modelID: modelID}
	c.active[chatID] = sess
	return sess, nil
}

func (c *Controller) end(sess *streamSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, sess.chatID)
}

func (c *Controller) lookup(chatID string) *streamSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[chatID]
}

// =============================================================================
// SEND
// =============================================================================

// Send performs one send operation end-to-end. The optimistic user message
// and assistant placeholder are visible in the store before any network
// call; Send then blocks until the exchange is terminal. It is a no-op
// (store unchanged) when there is nothing to send or the chat is busy.
func (c *Controller) Send(ctx context.Context, chatID, content string, attachments []*model.Attachment) error {
	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return ErrEmptyMessage
	}

	chat, _ := c.store.Chat(chatID)
	sess, err := c.begin(chatID, chat.ModelID)
	if err != nil {
		return err
	}
	defer c.end(sess)

	// Optimistic records first: perceived latency is zero regardless of
	// network RTT.
	userMsg := model.NewOptimisticUserMessage(chatID, content, attachments)
	placeholder := model.NewStreamingPlaceholder(chatID, chat.ModelID)
	sess.tempUserID = userMsg.ID
	sess.tempAssistantID = placeholder.ID

	if err := c.store.AppendMessage(userMsg); err != nil {
		return err
	}
	if err := c.store.AppendMessage(placeholder); err != nil {
		c.store.RemoveMessage(chatID, userMsg.ID)
		return err
	}

	// Uploads settle before the stream is opened: the send request must
	// reference server-assigned attachment IDs, which exist only once each
	// upload has completed.
	if len(attachments) > 0 {
		for _, att := range attachments {
			att.MarkUploading()
		}
		c.uploadAll(ctx, attachments)
	}

	streamCtx, abort := context.WithCancel(ctx)
	sess.abort = abort
	defer abort()

	attachmentIDs := make([]string, 0, len(attachments))
	for _, att := range attachments {
		if att.CurrentStatus() == model.AttachmentUploaded {
			attachmentIDs = append(attachmentIDs, att.CurrentID())
		}
	}
	req := api.SendRequest{
		ChatID:        chatID,
		Content:       content,
		ModelID:       chat.ModelID,
		AttachmentIDs: attachmentIDs,
	}

	it, err := c.transport.OpenStream(streamCtx, req)
	if errors.Is(err, api.ErrStreamUnavailable) {
		it, err = c.transport.SendFallback(streamCtx, req)
	}
	if err != nil {
		return c.failOpen(ctx, sess, err)
	}

	return c.consume(ctx, streamCtx, sess, it, []model.MessageID{sess.tempUserID, sess.tempAssistantID})
}

// failOpen resolves a failed transport open: provider errors become the
// assistant message's final content (the session completes), anything else
// removes both optimistic records and propagates.
func (c *Controller) failOpen(ctx context.Context, sess *streamSession, err error) error {
	var pe *api.ProviderError
	if errors.As(err, &pe) {
		c.store.FinishStreaming(sess.chatID, sess.tempAssistantID, pe.Message)
		c.store.DemoteOptimistic(sess.chatID, sess.tempUserID, sess.tempAssistantID)
		return nil
	}
	c.removeOptimistic(sess)
	return err
}

// removeOptimistic deletes the session's optimistic records, releasing any
// attachment previews they held.
func (c *Controller) removeOptimistic(sess *streamSession) {
	if !sess.tempAssistantID.IsZero() {
		c.store.RemoveMessage(sess.chatID, sess.tempAssistantID)
	}
	if !sess.tempUserID.IsZero() {
		c.store.RemoveMessage(sess.chatID, sess.tempUserID)
	}
}

// uploadAll uploads attachments concurrently with all-settled semantics:
// one failure does not cancel the others, and each record is updated in
// place as its upload settles. Blocks until every upload has settled.
func (c *Controller) uploadAll(ctx context.Context, attachments []*model.Attachment) {
	var wg sync.WaitGroup
	for _, att := range attachments {
		wg.Add(1)
		go func(att *model.Attachment) {
			defer wg.Done()
			info, err := c.transport.UploadAttachment(ctx, att.Filename, att.FileType, att.Data)
			if err != nil {
				log.Printf("session: attachment upload failed: %v", err)
				att.MarkError()
				return
			}
			att.MarkUploaded(info.ID, info.URL)
		}(att)
	}
	wg.Wait()
}

// =============================================================================
// STREAM CONSUMPTION
// =============================================================================

// consume pulls the iterator to completion, publishing throttled content
// updates to the placeholder, then resolves the session to a terminal
// state: reconciliation, cancellation cleanup, or error cleanup.
func (c *Controller) consume(ctx, streamCtx context.Context, sess *streamSession, it *stream.Iterator, temps []model.MessageID) error {
	limiter := rate.NewLimiter(rate.Every(c.throttleInterval()), 1)

	var nextErr error
	for {
		u, ok, err := it.Next(streamCtx)
		if !ok {
			nextErr = err
			break
		}
		content := sess.apply(u)
		if limiter.Allow() {
			c.store.SetContent(sess.chatID, sess.tempAssistantID, content)
		}
	}

	// The throttle coalesces but must never swallow the last chunk.
	c.store.SetContent(sess.chatID, sess.tempAssistantID, sess.snapshot())

	switch {
	case nextErr == nil:
		// Terminal protocol event (stream_end, stream_cancelled, or a
		// recovered stream_error): complete and reconcile.
		c.finishStream(ctx, sess, temps)
		return nil

	case errors.Is(nextErr, context.Canceled), errors.Is(nextErr, context.DeadlineExceeded):
		c.finishCancelled(ctx, sess, temps)
		return nil

	default:
		// Transport fault mid-stream: remove the optimistic records
		// entirely rather than leaving them broken.
		c.removeOptimistic(sess)
		return nextErr
	}
}

// finishStream handles normal completion: demote-or-splice against the
// authoritative server records, then the title side channel.
func (c *Controller) finishStream(ctx context.Context, sess *streamSession, temps []model.MessageID) {
	c.store.FinishStreaming(sess.chatID, sess.tempAssistantID, sess.snapshot())
	c.reconcile(ctx, sess.chatID, temps)
	c.maybeGenerateTitle(ctx, sess.chatID)
}

// finishCancelled handles an aborted transport. If the abort came from
// Cancel, the placeholder already carries the server-confirmed (or locally
// salvaged) content; otherwise the local partial is preserved in place.
// Either way the records end terminal, and with no partial content the
// empty placeholder is dropped instead of demoted.
func (c *Controller) finishCancelled(ctx context.Context, sess *streamSession, temps []model.MessageID) {
	partial := sess.snapshot()
	if !sess.wasCancelled() {
		// External abort, not via Cancel: never lose visible output.
		c.store.FinishStreaming(sess.chatID, sess.tempAssistantID, partial)
	}

	if partial == "" {
		c.store.RemoveMessage(sess.chatID, sess.tempAssistantID)
		remaining := temps[:0:0]
		for _, id := range temps {
			if !id.Equal(sess.tempAssistantID) {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) > 0 {
			c.reconcile(ctx, sess.chatID, remaining)
		}
		return
	}

	c.reconcile(ctx, sess.chatID, temps)
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel cancels the chat's active stream. If partial content exists the
// cancel endpoint is called first, so the server durably saves the partial
// before the transport abort can sever the connection; only then is the
// abort signal fired. A failed save falls back to the locally accumulated
// content - visible partial output is never lost.
func (c *Controller) Cancel(ctx context.Context, chatID string) error {
	sess := c.lookup(chatID)
	if sess == nil || sess.abort == nil {
		return ErrNoActiveStream
	}

	sess.markCancelled()
	partial := sess.snapshot()

	if partial != "" {
		resp, err := c.transport.CancelStream(ctx, api.CancelRequest{
			ChatID:         chatID,
			PartialContent: partial,
			ModelID:        sess.modelID,
		})
		if err == nil && resp.Message.Content != "" {
			c.store.FinishStreaming(chatID, sess.tempAssistantID, resp.Message.Content)
		} else {
			if err != nil {
				log.Printf("session: cancel save failed, keeping local partial: %v", err)
			}
			c.store.FinishStreaming(chatID, sess.tempAssistantID, partial)
		}
	}

	// Save-then-abort: the transport is severed only after the partial is
	// settled one way or the other.
	sess.abort()
	return nil
}

// =============================================================================
// RETRY
// =============================================================================

// Retry re-runs generation for a message. Permitted only for the chat's
// most recent message, only if it is an assistant message, and only while
// the chat is not streaming.
func (c *Controller) Retry(ctx context.Context, chatID string, messageID model.MessageID) error {
	msgs := c.store.Messages(chatID)
	if len(msgs) == 0 {
		return store.ErrMessageNotFound
	}
	last := msgs[len(msgs)-1]
	if !last.ID.Equal(messageID) {
		return ErrNotLatestMessage
	}
	if last.Role != model.RoleAssistant {
		return ErrNotAssistant
	}

	chat, _ := c.store.Chat(chatID)
	sess, err := c.begin(chatID, chat.ModelID)
	if err != nil {
		return err
	}
	defer c.end(sess)

	if err := c.store.RemoveMessage(chatID, messageID); err != nil {
		return err
	}

	placeholder := model.NewStreamingPlaceholder(chatID, chat.ModelID)
	sess.tempAssistantID = placeholder.ID
	if err := c.store.AppendMessage(placeholder); err != nil {
		return err
	}

	streamCtx, abort := context.WithCancel(ctx)
	sess.abort = abort
	defer abort()

	it, err := c.transport.RetryStream(streamCtx, chatID, messageID.String())
	if err != nil {
		var pe *api.ProviderError
		if errors.As(err, &pe) {
			c.store.FinishStreaming(chatID, placeholder.ID, pe.Message)
			c.store.DemoteOptimistic(chatID, placeholder.ID)
			return nil
		}
		c.store.RemoveMessage(chatID, placeholder.ID)
		return err
	}

	// Reconcile only the single newest server record over the new
	// placeholder.
	return c.consume(ctx, streamCtx, sess, it, []model.MessageID{placeholder.ID})
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// reconcile fetches the chat's authoritative messages and splices the
// newest server records over the temporary records. Reconciliation is never
// fatal: any failure demotes the temporaries in place so the store always
// ends terminal.
func (c *Controller) reconcile(ctx context.Context, chatID string, temps []model.MessageID) {
	resp, err := c.transport.FetchChat(ctx, chatID)
	if err != nil || len(resp.Messages) < len(temps) {
		if err != nil {
			log.Printf("session: reconciliation fetch failed, demoting in place: %v", err)
		}
		c.store.DemoteOptimistic(chatID, temps...)
		return
	}

	server := make([]*model.Message, len(resp.Messages))
	for i := range resp.Messages {
		server[i] = fromWire(&resp.Messages[i])
	}
	if err := c.store.ReconcileTail(chatID, server, temps); err != nil {
		// ReconcileTail has already demoted the temporaries.
		return
	}

	c.syncChat(&resp.Chat)

	if c.recorder != nil {
		msgs := c.store.Messages(chatID)
		if len(msgs) >= len(temps) {
			if err := c.recorder.Record(chatID, msgs[len(msgs)-len(temps):]); err != nil {
				log.Printf("session: history record failed: %v", err)
			}
		}
	}
}

// syncChat folds authoritative chat metadata into the store, preserving a
// locally known model selection if the server omits one.
func (c *Controller) syncChat(wire *api.Chat) {
	existing, ok := c.store.Chat(wire.ID)
	chat := model.Chat{
		ID:           wire.ID,
		Title:        wire.Title,
		ModelID:      wire.ModelID,
		CreatedAt:    wire.CreatedAt,
		UpdatedAt:    wire.UpdatedAt,
		MessageCount: wire.MessageCount,
		Shared:       wire.Shared,
		ShareToken:   wire.ShareToken,
		ParentChatID: wire.ParentChatID,
	}
	if chat.Title == "" {
		chat.Title = model.DefaultChatTitle
	}
	if chat.ModelID == "" && ok {
		chat.ModelID = existing.ModelID
	}
	c.store.PutChat(&chat)
}

// maybeGenerateTitle triggers the title side channel after the first
// successful exchange. Failures are cosmetic and swallowed.
func (c *Controller) maybeGenerateTitle(ctx context.Context, chatID string) {
	chat, ok := c.store.Chat(chatID)
	if !ok || !chat.HasDefaultTitle() {
		return
	}
	if c.store.MessageCount(chatID) != 2 {
		return
	}
	title, err := c.transport.GenerateTitle(ctx, chatID)
	if err != nil {
		log.Printf("session: title generation failed: %v", err)
		return
	}
	if title != "" {
		c.store.SetChatTitle(chatID, title)
	}
}
