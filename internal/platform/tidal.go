package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"hifi-download-manager/internal/config"
)

const tidalAPIBase = "https://api.tidal.com/v1"

// Tidal downloads through the tiddl CLI and searches through the TIDAL web
// API using the token tiddl stores after "tiddl auth login". Expired tokens
// are refreshed once and the operation retried, so callers never see a token
// error that a refresh would have fixed.
type Tidal struct {
	cfg        config.TidalConfig
	httpClient *http.Client
}

func NewTidal(cfg config.TidalConfig) *Tidal {
	return &Tidal{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// tiddlAuth is the slice of ~/tiddl.json this package needs.
type tiddlAuth struct {
	Auth struct {
		Token       string      `json:"token"`
		UserID      json.Number `json:"user_id"`
		CountryCode string      `json:"country_code"`
		Expires     float64     `json:"expires"`
	} `json:"auth"`
}

func (t *Tidal) loadAuth() (tiddlAuth, error) {
	var auth tiddlAuth
	data, err := os.ReadFile(t.cfg.AuthFile)
	if err != nil {
		return auth, fmt.Errorf("TIDAL not authenticated. Run: tiddl auth login")
	}
	if err := json.Unmarshal(data, &auth); err != nil {
		return auth, fmt.Errorf("read tiddl auth file: %w", err)
	}
	if auth.Auth.Token == "" {
		return auth, fmt.Errorf("TIDAL not authenticated. Run: tiddl auth login")
	}
	return auth, nil
}

// refreshToken shells out to tiddl to refresh an expired token.
func (t *Tidal) refreshToken(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, t.cfg.Binary, "auth", "refresh").Run() == nil
}

type tidalSearchResponse struct {
	Items []struct {
		ID             json.Number `json:"id"`
		Title          string      `json:"title"`
		Name           string      `json:"name"`
		Duration       int         `json:"duration"`
		NumberOfTracks int         `json:"numberOfTracks"`
		Artists        []struct {
			Name string `json:"name"`
		} `json:"artists"`
	} `json:"items"`
}

func (t *Tidal) Search(ctx context.Context, query string, kind ItemType, limit int) (string, error) {
	auth, err := t.loadAuth()
	if err != nil {
		return "", err
	}
	if auth.Auth.Expires > 0 && float64(time.Now().Unix()) > auth.Auth.Expires {
		if !t.refreshToken(ctx) {
			return "", fmt.Errorf("TIDAL token expired and refresh failed. Run: tiddl auth login")
		}
		if auth, err = t.loadAuth(); err != nil {
			return "", err
		}
	}

	endpoint := fmt.Sprintf("%s/search/%ss", tidalAPIBase, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", fmt.Sprint(limit))
	q.Set("countryCode", auth.Auth.CountryCode)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+auth.Auth.Token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tidal search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &BackendError{Message: fmt.Sprintf("Error searching TIDAL: unexpected status %s", resp.Status)}
	}

	var parsed tidalSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode tidal search response: %w", err)
	}
	if len(parsed.Items) == 0 {
		return fmt.Sprintf("No %ss found on TIDAL for '%s'", kind, query), nil
	}

	lines := []string{fmt.Sprintf("Found %d TIDAL %s(s) for '%s':\n", len(parsed.Items), kind, query)}
	for i, item := range parsed.Items {
		artists := "Unknown"
		if len(item.Artists) > 0 {
			names := make([]string, len(item.Artists))
			for j, a := range item.Artists {
				names[j] = a.Name
			}
			artists = strings.Join(names, ", ")
		}
		switch kind {
		case ItemTrack:
			lines = append(lines, fmt.Sprintf("%d. %s by %s (%d:%02d) [ID: %s]",
				i+1, item.Title, artists, item.Duration/60, item.Duration%60, item.ID))
		case ItemAlbum:
			lines = append(lines, fmt.Sprintf("%d. %s by %s (%d tracks) [ID: %s]",
				i+1, item.Title, artists, item.NumberOfTracks, item.ID))
		case ItemArtist:
			lines = append(lines, fmt.Sprintf("%d. %s [ID: %s]", i+1, item.Name, item.ID))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (t *Tidal) Download(ctx context.Context, itemID string, kind ItemType, outputPath string, progress ProgressFunc) (Result, error) {
	downloadPath := expandPath(outputPath, t.cfg.DownloadPath)
	itemURL := fmt.Sprintf("https://tidal.com/browse/%s/%s", kind, itemID)

	refreshed := false
	for {
		before, err := dirEntries(downloadPath)
		if err != nil {
			return Result{}, fmt.Errorf("prepare download dir: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
		cmd := exec.CommandContext(runCtx, t.cfg.Binary,
			"url", itemURL, "download",
			"-q", t.cfg.Quality,
			"-p", downloadPath,
		)
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out
		runErr := cmd.Run()
		timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
		cancel()

		if timedOut {
			return Result{}, &TimeoutError{Platform: "TIDAL", ItemType: kind, ItemID: itemID, Limit: t.cfg.Timeout}
		}
		if runErr != nil {
			msg := strings.TrimSpace(out.String())
			if msg == "" {
				msg = runErr.Error()
			}
			if tokenExpired(msg) && !refreshed {
				refreshed = true
				if t.refreshToken(ctx) {
					continue
				}
			}
			return Result{}, &BackendError{Message: fmt.Sprintf("Error downloading from TIDAL: %s", msg)}
		}

		name, err := newEntry(downloadPath, before)
		if err != nil {
			return Result{}, err
		}
		if name == "" {
			if looksLikeNotFound(out.String()) {
				return Result{}, &BackendError{Message: fmt.Sprintf("Error: TIDAL %s not found (ID: %s). Please verify the ID is correct.", kind, itemID)}
			}
			return Result{}, &BackendError{Message: fmt.Sprintf("Error: Download completed but no files were created. The %s ID %q may be invalid.", kind, itemID)}
		}

		if progress != nil {
			progress(1, 1)
		}
		return Result{Name: name, Location: downloadPath}, nil
	}
}

func tokenExpired(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "expired") || strings.Contains(lower, "401")
}
