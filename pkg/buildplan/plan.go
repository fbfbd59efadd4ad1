// SPDX-License-Identifier: MPL-2.0

package buildplan

import (
	"path"
	"slices"
	"strings"

	"github.com/extforge/extforge/pkg/manifest"
)

type (
	// Icon is one size-keyed icon. Size is empty when the manifest gives a
	// bare path instead of a size map.
	Icon struct {
		Size string `json:"size,omitempty"`
		Path string `json:"path"`
	}

	// Assets are the non-script files an extension ships.
	Assets struct {
		MainIcons              []Icon   `json:"mainIcons"`
		ActionIcons            []Icon   `json:"actionIcons"`
		WebAccessibleResources []string `json:"webAccessibleResources"`
		Localizations          []string `json:"localizations"`
		HTMLPages              []string `json:"htmlPages"`
	}

	// Scripts groups the bundler entry points by origin.
	Scripts struct {
		BackgroundScripts  []string `json:"backgroundScripts"`
		ContentScripts     []string `json:"contentScripts"`
		PopupPageScripts   []string `json:"popupPageScripts"`
		OptionsPageScripts []string `json:"optionsPageScripts"`
	}

	// Plan is the build plan of one manifest. Create it with New, fill it
	// with Extract (or individual Set* calls) and discard it after the build.
	Plan struct {
		ContentScripts    []string `json:"contentScripts"`
		BackgroundScripts []string `json:"backgroundScripts"`
		Pages             []string `json:"pages"`
		OptionsPage       string   `json:"optionsPage,omitempty"`
		PopupPage         string   `json:"popupPage,omitempty"`
		HistoryPage       string   `json:"historyPage,omitempty"`
		Assets            Assets   `json:"assets"`
		Scripts           Scripts  `json:"scripts"`

		manifest *manifest.Manifest
	}
)

// New returns an empty plan bound to m. A nil manifest is treated as one
// with no optional sections.
func New(m *manifest.Manifest) *Plan {
	p := &Plan{manifest: m}
	p.reset()
	return p
}

// Extract builds a complete plan for m.
func Extract(m *manifest.Manifest) *Plan {
	p := New(m)
	p.ExtractAll()
	return p
}

// Manifest returns the manifest the plan was built from.
func (p *Plan) Manifest() *manifest.Manifest { return p.manifest }

// ExtractAll runs every extraction step.
func (p *Plan) ExtractAll() {
	p.SetContentScripts()
	p.SetBackgroundScripts()
	p.SetPages()
	p.SetAssets()
	p.SetPopupPageScripts()
	p.SetOptionsPageScripts()
}

func (p *Plan) reset() {
	p.ContentScripts = []string{}
	p.BackgroundScripts = []string{}
	p.Pages = []string{}
	p.Assets = Assets{
		MainIcons:              []Icon{},
		ActionIcons:            []Icon{},
		WebAccessibleResources: []string{},
		Localizations:          []string{},
		HTMLPages:              []string{},
	}
	p.Scripts = Scripts{
		BackgroundScripts:  []string{},
		ContentScripts:     []string{},
		PopupPageScripts:   []string{},
		OptionsPageScripts: []string{},
	}
}

// SetContentScripts flattens the js lists of every content_scripts block in
// declaration order. Duplicates are kept.
func (p *Plan) SetContentScripts() []string {
	scripts := []string{}
	if m := p.manifest; m != nil {
		for _, cs := range m.ContentScripts {
			scripts = append(scripts, cs.JS...)
		}
	}
	p.ContentScripts = scripts
	p.Scripts.ContentScripts = slices.Clone(scripts)
	return slices.Clone(scripts)
}

// SetBackgroundScripts stores the service worker, if any.
func (p *Plan) SetBackgroundScripts() []string {
	scripts := []string{}
	if sw := p.manifest.ServiceWorker(); sw != "" {
		scripts = append(scripts, sw)
	}
	p.BackgroundScripts = scripts
	p.Scripts.BackgroundScripts = slices.Clone(scripts)
	return slices.Clone(scripts)
}

// SetPages collects the HTML pages in the order history override, options,
// devtools, popup.
func (p *Plan) SetPages() []string {
	m := p.manifest
	p.HistoryPage = m.HistoryPage()
	p.PopupPage = m.PopupPage()
	p.OptionsPage = ""
	devtools := ""
	if m != nil {
		p.OptionsPage = m.OptionsPage
		devtools = m.DevtoolsPage
	}

	pages := appendPresent([]string{}, p.HistoryPage, p.OptionsPage, devtools, p.PopupPage)
	p.Pages = pages
	return slices.Clone(pages)
}

// SetAssets derives icons, web accessible resources, localization files and
// HTML pages. HTMLPages uses the order options, popup, history, devtools,
// which differs from Pages.
func (p *Plan) SetAssets() Assets {
	m := p.manifest
	a := Assets{
		MainIcons:              []Icon{},
		ActionIcons:            []Icon{},
		WebAccessibleResources: []string{},
		Localizations:          []string{},
		HTMLPages:              []string{},
	}
	if m != nil {
		a.MainIcons = iconsOf(m.Icons)
		if m.Action != nil && m.Action.DefaultIcon != nil {
			if icon := m.Action.DefaultIcon; icon.IsSingle() {
				a.ActionIcons = []Icon{{Path: icon.Path}}
			} else {
				a.ActionIcons = iconsOf(icon.Sizes)
			}
		}
		for _, war := range m.WebAccessibleResources {
			a.WebAccessibleResources = append(a.WebAccessibleResources, war.Resources...)
		}
		if m.DefaultLocale != "" {
			a.Localizations = append(a.Localizations, path.Join("_locales", m.DefaultLocale, "messages.json"))
		}
		a.HTMLPages = appendPresent(a.HTMLPages, m.OptionsPage, m.PopupPage(), m.HistoryPage(), m.DevtoolsPage)
	}
	p.Assets = a
	return a.clone()
}

// SetPopupPageScripts maps the popup page to its script (popup.html ->
// popup.js).
func (p *Plan) SetPopupPageScripts() []string {
	scripts := pageScript(p.manifest.PopupPage())
	p.Scripts.PopupPageScripts = scripts
	return slices.Clone(scripts)
}

// SetOptionsPageScripts maps the options page to its script.
func (p *Plan) SetOptionsPageScripts() []string {
	var page string
	if p.manifest != nil {
		page = p.manifest.OptionsPage
	}
	scripts := pageScript(page)
	p.Scripts.OptionsPageScripts = scripts
	return slices.Clone(scripts)
}

// EntryPoints is the bundler input: content scripts, background scripts,
// popup page scripts and options page scripts, in that order.
func (p *Plan) EntryPoints() []string {
	return slices.Concat(
		p.ContentScripts,
		p.BackgroundScripts,
		p.Scripts.PopupPageScripts,
		p.Scripts.OptionsPageScripts,
	)
}

// HasPopupPage reports whether the manifest declares a popup.
func (p *Plan) HasPopupPage() bool { return p.PopupPage != "" }

// HasOptionsPage reports whether the manifest declares an options page.
func (p *Plan) HasOptionsPage() bool { return p.OptionsPage != "" }

// HasHistoryPage reports whether the manifest overrides the history page.
func (p *Plan) HasHistoryPage() bool { return p.HistoryPage != "" }

func (a Assets) clone() Assets {
	return Assets{
		MainIcons:              slices.Clone(a.MainIcons),
		ActionIcons:            slices.Clone(a.ActionIcons),
		WebAccessibleResources: slices.Clone(a.WebAccessibleResources),
		Localizations:          slices.Clone(a.Localizations),
		HTMLPages:              slices.Clone(a.HTMLPages),
	}
}

func iconsOf(set manifest.IconSet) []Icon {
	icons := make([]Icon, 0, len(set))
	for _, size := range set.SortedSizes() {
		icons = append(icons, Icon{Size: size, Path: set[size]})
	}
	return icons
}

func pageScript(page string) []string {
	if page == "" {
		return []string{}
	}
	return []string{strings.TrimSuffix(page, ".html") + ".js"}
}

func appendPresent(dst []string, values ...string) []string {
	for _, v := range values {
		if v != "" {
			dst = append(dst, v)
		}
	}
	return dst
}
