package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	triagedomain "mailsentry/internal/triage/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrHistoryGone signals that the stored change cursor has rolled out of the
// upstream retention window. This is a gap, not a failure: the caller resets
// its baseline instead of retrying.
var ErrHistoryGone = errors.New("gmail: history cursor no longer available")

// ErrMessageGone signals that the source message no longer exists upstream.
var ErrMessageGone = errors.New("gmail: message no longer exists")

// HistoryResult is one resolved history range: the new message ids in upstream
// order and the cursor value reported for the end of the range.
type HistoryResult struct {
	MessageIDs []string
	HistoryID  uint64
}

// WatchResult reports the outcome of a watch registration.
type WatchResult struct {
	HistoryID  uint64
	Expiration time.Time
}

type Service struct {
	clientID     string
	clientSecret string
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// service creates a Gmail client for one account's refresh token. Access
// tokens are minted on demand by the oauth2 transport; nothing is cached
// across calls.
func (s *Service) service(ctx context.Context, refreshToken string) (*gmail.Service, error) {
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now(), // force an immediate refresh
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	client := oauth2.NewClient(ctx, config.TokenSource(ctx, token))
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// Profile returns the mailbox's latest history id.
func (s *Service) Profile(ctx context.Context, refreshToken string) (uint64, error) {
	srv, err := s.service(ctx, refreshToken)
	if err != nil {
		return 0, err
	}

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to get profile: %v", err)
	}
	return profile.HistoryId, nil
}

// ListHistory returns the message ids added between startHistoryID and the
// latest known cursor, following pagination. A 404 from upstream means the
// start cursor has expired and is reported as ErrHistoryGone.
func (s *Service) ListHistory(ctx context.Context, refreshToken string, startHistoryID uint64, labelID string) (*HistoryResult, error) {
	srv, err := s.service(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	result := &HistoryResult{}
	seen := make(map[string]bool)
	pageToken := ""

	for {
		call := srv.Users.History.List("me").
			StartHistoryId(startHistoryID).
			HistoryTypes("messageAdded").
			LabelId(labelID).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			if isStatus(err, 404) {
				return nil, ErrHistoryGone
			}
			return nil, fmt.Errorf("unable to list history: %v", err)
		}

		for _, history := range resp.History {
			for _, added := range history.MessagesAdded {
				if added.Message == nil || added.Message.Id == "" {
					continue
				}
				if !seen[added.Message.Id] {
					seen[added.Message.Id] = true
					result.MessageIDs = append(result.MessageIDs, added.Message.Id)
				}
			}
		}
		if resp.HistoryId > result.HistoryID {
			result.HistoryID = resp.HistoryId
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return result, nil
}

// GetMessage fetches one message and flattens it to the fields the pipeline
// needs. A 404 is reported as ErrMessageGone.
func (s *Service) GetMessage(ctx context.Context, refreshToken, messageID string) (*triagedomain.Message, error) {
	srv, err := s.service(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		if isStatus(err, 404) {
			return nil, ErrMessageGone
		}
		return nil, fmt.Errorf("unable to retrieve message: %v", err)
	}

	from := getHeader(msg.Payload, "From")
	senderName, senderEmail := parseSender(from)

	return &triagedomain.Message{
		ID:          msg.Id,
		ThreadID:    msg.ThreadId,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		Subject:     getHeader(msg.Payload, "Subject"),
		Snippet:     msg.Snippet,
		BodyText:    extractBodyText(msg.Payload),
	}, nil
}

// Archive removes the INBOX label from the whole thread when a thread id is
// known, otherwise from the single message.
func (s *Service) Archive(ctx context.Context, refreshToken, messageID, threadID string) error {
	return s.modifyLabels(ctx, refreshToken, messageID, threadID, nil, []string{"INBOX"})
}

// Unarchive restores the INBOX label.
func (s *Service) Unarchive(ctx context.Context, refreshToken, messageID, threadID string) error {
	return s.modifyLabels(ctx, refreshToken, messageID, threadID, []string{"INBOX"}, nil)
}

func (s *Service) modifyLabels(ctx context.Context, refreshToken, messageID, threadID string, add, remove []string) error {
	srv, err := s.service(ctx, refreshToken)
	if err != nil {
		return err
	}

	if threadID != "" {
		req := &gmail.ModifyThreadRequest{AddLabelIds: add, RemoveLabelIds: remove}
		if _, err := srv.Users.Threads.Modify("me", threadID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("unable to modify thread labels: %v", err)
		}
		return nil
	}

	req := &gmail.ModifyMessageRequest{AddLabelIds: add, RemoveLabelIds: remove}
	if _, err := srv.Users.Messages.Modify("me", messageID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to modify message labels: %v", err)
	}
	return nil
}

// Trash moves the thread (or message) to trash.
func (s *Service) Trash(ctx context.Context, refreshToken, messageID, threadID string) error {
	srv, err := s.service(ctx, refreshToken)
	if err != nil {
		return err
	}

	if threadID != "" {
		if _, err := srv.Users.Threads.Trash("me", threadID).Context(ctx).Do(); err != nil {
			return fmt.Errorf("unable to trash thread: %v", err)
		}
		return nil
	}
	if _, err := srv.Users.Messages.Trash("me", messageID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to trash message: %v", err)
	}
	return nil
}

// Untrash restores a trashed thread (or message).
func (s *Service) Untrash(ctx context.Context, refreshToken, messageID, threadID string) error {
	srv, err := s.service(ctx, refreshToken)
	if err != nil {
		return err
	}

	if threadID != "" {
		if _, err := srv.Users.Threads.Untrash("me", threadID).Context(ctx).Do(); err != nil {
			return fmt.Errorf("unable to untrash thread: %v", err)
		}
		return nil
	}
	if _, err := srv.Users.Messages.Untrash("me", messageID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to untrash message: %v", err)
	}
	return nil
}

// Watch registers push notifications for the mailbox on the given topic.
func (s *Service) Watch(ctx context.Context, refreshToken, topicName string, labelIDs []string) (*WatchResult, error) {
	srv, err := s.service(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  labelIDs,
	}
	resp, err := srv.Users.Watch("me", req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to watch mailbox: %v", err)
	}

	return &WatchResult{
		HistoryID:  resp.HistoryId,
		Expiration: time.UnixMilli(resp.Expiration).UTC(),
	}, nil
}

// IsAuthError reports whether the error indicates revoked or expired
// credentials rather than a transient failure.
func (s *Service) IsAuthError(err error) bool {
	if isStatus(err, 401) || isStatus(err, 403) {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr)
}

// Helper functions

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func getHeader(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, header := range payload.Headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func parseSender(from string) (name, email string) {
	if idx := strings.Index(from, "<"); idx >= 0 && strings.Contains(from, ">") {
		name = strings.Trim(strings.TrimSpace(from[:idx]), `"`)
		email = strings.TrimSpace(strings.Trim(from[idx+1:], " >"))
		return name, email
	}
	return "", strings.TrimSpace(from)
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func extractBodyText(payload *gmail.MessagePart) string {
	if plain := findPart(payload, "text/plain"); plain != "" {
		return plain
	}

	if html := findPart(payload, "text/html"); html != "" {
		text := htmlTagRe.ReplaceAllString(html, " ")
		text = strings.ReplaceAll(text, "&nbsp;", " ")
		text = strings.ReplaceAll(text, "&lt;", "<")
		text = strings.ReplaceAll(text, "&gt;", ">")
		text = strings.ReplaceAll(text, "&amp;", "&")
		text = strings.ReplaceAll(text, "&quot;", "\"")
		return strings.Join(strings.Fields(text), " ")
	}

	return ""
}

func findPart(payload *gmail.MessagePart, mimeType string) string {
	if payload == nil {
		return ""
	}
	if payload.MimeType == mimeType && payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	for _, part := range payload.Parts {
		if found := findPart(part, mimeType); found != "" {
			return found
		}
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}
