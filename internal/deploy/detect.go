package deploy

import "strings"

// projectType describes how to install, build, and serve a recognized
// project layout. An empty Build means the type has no build step; an empty
// ServeDir serves the checkout root.
type projectType struct {
	Manifest string
	Install  string
	Build    string
	ServeDir string
}

var projectTypes = []projectType{
	{Manifest: "package.json", Install: "npm install", Build: "npm run build", ServeDir: "dist"},
	{Manifest: "requirements.txt", Install: "pip install -r requirements.txt"},
	{Manifest: "pyproject.toml", Install: "pip install -e ."},
}

// detect matches a directory listing (one entry per line) against the
// project table. First match wins.
func detect(listing string) (projectType, bool) {
	present := make(map[string]bool)
	for _, line := range strings.Split(listing, "\n") {
		present[strings.TrimSpace(line)] = true
	}
	for _, pt := range projectTypes {
		if present[pt.Manifest] {
			return pt, true
		}
	}
	return projectType{}, false
}
