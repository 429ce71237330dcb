package handlers

import (
	"crypto/sha1"
	"html/template"
	"math"
	"net/http"
	"path"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/pbkdf2"

	"github.com/spencer-p/surfdash/pkg/forecast"
	"github.com/spencer-p/surfdash/pkg/logger"
	"github.com/spencer-p/surfdash/pkg/meta"
	"github.com/spencer-p/surfdash/pkg/spots"
	"github.com/spencer-p/surfdash/pkg/sunset"
	"github.com/spencer-p/surfdash/pkg/timetricks"
	"github.com/spencer-p/surfdash/pkg/visualize"
)

const (
	sessionName       = "surfdash"
	sessionLastViewed = "last-viewed"
	favoriteSpot      = "favorite-spot"
	// See https://developer.chrome.com/blog/cookie-max-age-expires.
	defaultMaxAge = 60 * 60 * 24 * 400 // 400 days in seconds.

	insecureDefaultKey = "deadbeef"
)

var templateFuncs = template.FuncMap{
	"percent": func(f float64) int { return int(math.Round(f * 100)) },
	"path":    pathJoinPreservePrefix,
}

type TemplateInput struct {
	Spot        spots.Spot
	Spots       []spots.Spot
	Favorite    bool
	Current     currentResponse
	Days        []PresentationElement
	Sources     []forecast.Outcome
	GeneratedAt string
	Prefix      string
}

// PresentationElement is one day of the rendered forecast.
type PresentationElement struct {
	Date      string
	Summary   meta.DailySummary
	Sunrise   string
	Sunset    string
	TideImage template.HTML
}

// newSessionStore returns a cookie store signed with sessionKey and encrypted
// with a key derived from encryptionKey. Empty keys fall back to a fixed
// development default.
func newSessionStore(sessionKey, encryptionKey string) *sessions.CookieStore {
	if sessionKey == "" {
		sessionKey = insecureDefaultKey
	}
	if encryptionKey == "" {
		encryptionKey = insecureDefaultKey
	}
	store := &sessions.CookieStore{
		Codecs: securecookie.CodecsFromPairs(
			[]byte(sessionKey),
			pbkdf2.Key([]byte(encryptionKey), []byte{}, 4096, 32, sha1.New),
		),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   defaultMaxAge,
			Secure:   true,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
	store.MaxAge(defaultMaxAge)
	return store
}

func (s *Server) session(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		// A cookie from an old key; start over with the fresh session.
		logger.Debugf("Discarding session: %v", err)
	}
	return session
}

// serveIndex renders the visitor's favorite spot, or the default spot.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	spot := s.defaultSpot
	if name, ok := session.Values[favoriteSpot].(string); ok {
		if fav, err := s.registry.Lookup(name); err == nil {
			spot = fav
		} else {
			logger.Warnf("Favorite spot %q is gone: %v", name, err)
		}
	}
	s.render(w, r, session, spot)
}

func (s *Server) serveSpot(w http.ResponseWriter, r *http.Request) {
	spot, ok := s.spotFromRequest(w, r)
	if !ok {
		return
	}
	s.render(w, r, s.session(r), spot)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, session *sessions.Session, spot spots.Spot) {
	session.Values[sessionLastViewed] = r.URL.String()
	if err := session.Save(r, w); err != nil {
		logger.Warnf("save session err: %v", err)
	}

	snap, summaries, ok := s.conditions(w, r, spot)
	if !ok {
		return
	}
	now := s.now()
	fav, _ := session.Values[favoriteSpot].(string)

	tinput := TemplateInput{
		Spot:        spot,
		Spots:       s.registry.All(),
		Favorite:    spots.Slug(fav) == spot.Slug(),
		Current:     currentOf(snap, now),
		Days:        presentationElements(snap, summaries, now),
		Sources:     snap.Outcomes,
		GeneratedAt: timetricks.Clock(snap.FetchedAt.In(spot.Zone())),
		Prefix:      s.prefix,
	}

	w.Header().Add("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if err := s.index.Execute(w, tinput); err != nil {
		logger.Errorf("Failed to execute template: %v", err)
	}
}

// presentationElements pairs each summary with the day's sun times and a tide
// chart.
func presentationElements(snap *forecast.Snapshot, summaries []meta.DailySummary, now time.Time) []PresentationElement {
	if len(summaries) == 0 {
		return nil
	}
	zone := snap.Spot.Zone()
	span := time.Duration(len(summaries)) * 24 * time.Hour
	sunEvents := sunset.GetSunEvents(summaries[0].Day, span, sunset.PlaceOf(snap.Spot.Location()))
	tideImages := visualize.NewTidal(snap.Conditions.Tides, sunEvents, zone)

	result := make([]PresentationElement, 0, len(summaries))
	for _, sum := range summaries {
		sum.AvgHeight = round(sum.AvgHeight, 1)
		sum.AvgPeriod = round(sum.AvgPeriod, 0)
		elem := PresentationElement{
			Date:    timetricks.Day(sum.Day, now),
			Summary: sum,
		}
		if rise, set, ok := sunEvents.On(sum.Day, zone); ok {
			elem.Sunrise = timetricks.Clock(rise.In(zone))
			elem.Sunset = timetricks.Clock(set.In(zone))
		}
		tideImages.SetDate(sum.Day)
		elem.TideImage = template.HTML(tideImages.String())
		result = append(result, elem)
	}
	return result
}

// saveFavorite remembers the spot in the visitor's session and sends them
// back to it.
func (s *Server) saveFavorite(w http.ResponseWriter, r *http.Request) {
	spot, ok := s.spotFromRequest(w, r)
	if !ok {
		return
	}
	session := s.session(r)
	session.Values[favoriteSpot] = spot.Name
	if err := session.Save(r, w); err != nil {
		logger.Errorf("Failed to save favorite: %v", err)
		http.Error(w, "Failed to save favorite", http.StatusInternalServerError)
		return
	}
	logger.Infof("Saved favorite spot %s", spot.Name)

	redirectTo := pathJoinPreservePrefix(s.prefix, "/spots/"+spot.Slug())
	http.Redirect(w, r, redirectTo, http.StatusFound)
}

func pathJoinPreservePrefix(prefix string, suffix string) string {
	trimmedPrefix := path.Join(prefix, "")
	result := path.Join(prefix, suffix)
	if result == trimmedPrefix {
		return prefix
	}
	return result
}
