package spigot

import "regexp"

// profileURLRe matches SpigotMC member profile URLs such as
// https://www.spigotmc.org/members/md_5.1/ and captures the slug and the
// numeric member ID.
var profileURLRe = regexp.MustCompile(`^https?://(www\.)?spigotmc\.org/members/([A-Za-z0-9_\-\.]+)\.(\d+)/?$`)

// ParseProfileURL extracts the member slug and numeric ID from a SpigotMC
// profile URL. ok is false when the URL does not match the profile shape.
func ParseProfileURL(rawURL string) (slug, id string, ok bool) {
	m := profileURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", false
	}
	return m[2], m[3], true
}
