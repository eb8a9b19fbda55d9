package variants

import (
	"errors"
	"sync"
	"sync/atomic"
)

var errBannerTitle = errors.New("banner title required")

// mutableSource publishes copy-on-write views for tests that update state.
type mutableSource struct {
	mu      sync.Mutex
	current atomic.Pointer[Assignments]
}

func newMutableSource(values map[string]any) *mutableSource {
	s := &mutableSource{}
	view := NewAssignments(values, 1)
	s.current.Store(&view)
	return s
}

func (s *mutableSource) Assignments() Assignments {
	return *s.current.Load()
}

func (s *mutableSource) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current.Load()
	values := prev.Values()
	values[key] = value
	next := NewAssignments(values, prev.Revision()+1)
	s.current.Store(&next)
}

func (s *mutableSource) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current.Load()
	values := prev.Values()
	delete(values, key)
	next := NewAssignments(values, prev.Revision()+1)
	s.current.Store(&next)
}

var (
	buttonColor = Define[Color]("button_color", MustColor("#0000FF"), WithDescription("Primary CTA color"))
	showImage   = Define("show_image", false)
	heroTitle   = Define("hero_title", "Welcome")
	maxItems    = Define("max_items", 10)

	homeCatalog = MustCatalog("home", buttonColor, showImage, heroTitle, maxItems)
)

type HomeGroup struct {
	Group
}

func NewHomeGroup(r *Resolver) HomeGroup {
	return HomeGroup{NewGroup("home", r)}
}

func (g HomeGroup) ButtonColor() Color { return buttonColor.Get(g.Group) }
func (g HomeGroup) ShowImage() bool    { return showImage.Get(g.Group) }
func (g HomeGroup) HeroTitle() string  { return heroTitle.Get(g.Group) }
func (g HomeGroup) MaxItems() int      { return maxItems.Get(g.Group) }
func (g HomeGroup) Pin() HomeGroup     { return HomeGroup{g.Group.Pin()} }

type homeView struct {
	ButtonColor Color
	ShowImage   bool
	HeroTitle   string
}

func readHome(g HomeGroup) homeView {
	return homeView{
		ButtonColor: g.ButtonColor(),
		ShowImage:   g.ShowImage(),
		HeroTitle:   g.HeroTitle(),
	}
}

type banner struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func (b banner) Validate() error {
	if b.Title == "" {
		return errBannerTitle
	}
	return nil
}

type tier string

func (t *tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "gold", "silver":
		*t = tier(text)
		return nil
	default:
		return errors.New("unknown tier")
	}
}
