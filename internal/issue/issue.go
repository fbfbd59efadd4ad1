// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalog page.
type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestInvalidId
	EntryPointMissingId
	CompilationFailedId
	BundlerFailedId
	ConfigLoadFailedId
	InvalidBumpTypeId
	InvalidVersionId
)

type (
	// MarkdownMsg is the Markdown body of an issue page.
	MarkdownMsg string

	// HttpLink is a documentation URL shown under "See also".
	HttpLink string

	// Issue is one catalog page.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

var issues = map[Id]*Issue{
	ManifestNotFoundId: {
		id: ManifestNotFoundId,
		mdMsg: `
# No manifest.json found!

extforge reads ` + "`manifest.json`" + ` from the project directory.

## Things you can try:
- Run the command from your extension's root directory
- Or point extforge at it:
~~~
$ extforge --dir path/to/extension build
~~~`,
		docLinks: []HttpLink{"https://developer.chrome.com/docs/extensions/reference/manifest"},
	},
	ManifestInvalidId: {
		id: ManifestInvalidId,
		mdMsg: `
# Your manifest is invalid!

Every manifest needs ` + "`name`, `description`, `manifest_version` and `version`" + `,
and every entry in ` + "`permissions`" + ` must be a known permission.

## Things you can try:
- Fix the fields listed above
- Check the result without building:
~~~
$ extforge validate
~~~`,
		docLinks: []HttpLink{"https://developer.chrome.com/docs/extensions/reference/permissions-list"},
	},
	EntryPointMissingId: {
		id: EntryPointMissingId,
		mdMsg: `
# A script referenced by the manifest does not exist!

Content scripts, the service worker and the scripts next to the popup and
options pages (` + "`popup.html` -> `popup.js`" + `) are bundled from the project directory.

## Things you can try:
- Create the missing file
- Fix the path in manifest.json`,
	},
	CompilationFailedId: {
		id: CompilationFailedId,
		mdMsg: `
# Compilation failed!

esbuild reported errors in your scripts. The messages above point at the
file, line and column.

## Things you can try:
- Fix the syntax or import errors listed above
- Keep a rebuild loop running while you fix them:
~~~
$ extforge build --watch
~~~`,
	},
	BundlerFailedId: {
		id: BundlerFailedId,
		mdMsg: `
# The bundler could not run!

## Things you can try:
- Check that the output directory is writable
- Check ` + "`.env`" + ` for syntax errors
- Run with ` + "`--verbose`" + ` for the full error chain`,
	},
	ConfigLoadFailedId: {
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

extforge reads ` + "`extforge.cue`" + ` from the project and ` + "`config.cue`" + ` from
your user configuration directory.

## Things you can try:
- Fix the CUE syntax error reported above
- Print the effective configuration:
~~~
$ extforge config show
~~~`,
	},
	InvalidBumpTypeId: {
		id: InvalidBumpTypeId,
		mdMsg: `
# Invalid version type!

## Usage:
~~~
$ extforge version patch
$ extforge version minor
$ extforge version major
~~~`,
	},
	InvalidVersionId: {
		id: InvalidVersionId,
		mdMsg: `
# Invalid version format!

The ` + "`version`" + ` field must use the format major.minor.patch, for example ` + "`1.4.2`" + `.`,
		docLinks: []HttpLink{"https://semver.org"},
	},
}

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

// Markdown returns the page including its "See also" section.
func (i *Issue) Markdown() string {
	var b strings.Builder
	b.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		b.WriteString("\n\n## See also:\n")
		for _, link := range i.docLinks {
			b.WriteString("- " + string(link) + "\n")
		}
	}
	return b.String()
}

// Render formats the page for a terminal with the given glamour style
// ("dark", "light", "notty", ...).
func (i *Issue) Render(style string) (string, error) {
	return glamour.Render(i.Markdown(), style)
}

// Get returns the page for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Values returns every page ordered by id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}
