// Package profile resolves public usernames to display name and photo. It is
// a best-effort lookup: the public t.me page is tried first, the Bot API
// second, and step (a) failures are a cue to try (b), not errors.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/coconet/starshop/internal/storage"
)

var ErrNotFound = errors.New("profile not found")

// ChatAPI is the subset of the Bot API used for the fallback lookup. It is
// nil when the bot subsystem is disabled.
type ChatAPI interface {
	GetChat(ctx context.Context, params *bot.GetChatParams) (*models.ChatFullInfo, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

// LanguageStore looks up a stored user by username to attach their language
type LanguageStore interface {
	GetUserByUsername(username string) (*storage.User, error)
}

// Profile is the resolved public profile of a username
type Profile struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Photo    string `json:"photo"`
	Language string `json:"language"`
}

// Service performs profile lookups
type Service struct {
	baseURL    string
	chats      ChatAPI
	store      LanguageStore
	log        *slog.Logger
	httpClient *http.Client
}

// NewService creates a profile lookup service. baseURL is the public profile
// host, normally https://t.me.
func NewService(baseURL string, chats ChatAPI, store LanguageStore, log *slog.Logger) *Service {
	return &Service{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		chats:   chats,
		store:   store,
		log:     log,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Normalize strips the leading @ and surrounding whitespace from a username
func Normalize(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}

// Lookup resolves a username to a Profile, or ErrNotFound when neither the
// public page nor the Bot API yields a display name.
func (s *Service) Lookup(ctx context.Context, username string) (*Profile, error) {
	username = Normalize(username)
	if username == "" {
		return nil, ErrNotFound
	}

	name, photo := s.fromPublicPage(ctx, username)
	if name == "" {
		name, photo = s.fromBotAPI(ctx, username)
	}
	if name == "" {
		return nil, ErrNotFound
	}

	return &Profile{
		Name:     name,
		Username: username,
		Photo:    photo,
		Language: s.storedLanguage(username),
	}, nil
}

// fromPublicPage scrapes the og: meta tags of the public profile page.
// Network and parse failures are swallowed; the caller falls through to the
// Bot API.
func (s *Service) fromPublicPage(ctx context.Context, username string) (name, photo string) {
	url := s.baseURL + "/" + username

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", ""
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Debug("profile page fetch failed", "username", username, "error", err)
		return "", ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", ""
	}

	name, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	photo, _ = doc.Find(`meta[property="og:image"]`).Attr("content")

	name = strings.TrimSpace(name)
	// t.me serves a generic page for unknown usernames
	if strings.EqualFold(name, "Telegram") {
		return "", ""
	}

	return name, photo
}

func (s *Service) fromBotAPI(ctx context.Context, username string) (name, photo string) {
	if s.chats == nil {
		return "", ""
	}

	chat, err := s.chats.GetChat(ctx, &bot.GetChatParams{ChatID: "@" + username})
	if err != nil {
		s.log.Debug("get chat failed", "username", username, "error", err)
		return "", ""
	}

	name = strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	if name == "" {
		name = chat.Title
	}

	if chat.Photo != nil && chat.Photo.BigFileID != "" {
		file, err := s.chats.GetFile(ctx, &bot.GetFileParams{FileID: chat.Photo.BigFileID})
		if err != nil {
			s.log.Debug("get chat photo failed", "username", username, "error", err)
		} else {
			photo = s.chats.FileDownloadLink(file)
		}
	}

	return name, photo
}

func (s *Service) storedLanguage(username string) string {
	if s.store == nil {
		return "en"
	}

	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("language lookup failed", "username", username, "error", err)
		}
		return "en"
	}
	if user.Language == "" {
		return "en"
	}
	return user.Language
}
