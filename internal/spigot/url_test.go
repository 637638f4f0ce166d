package spigot

import "testing"

func TestParseProfileURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantSlug string
		wantID   string
		wantOK   bool
	}{
		{"https with www", "https://www.spigotmc.org/members/md_5.1/", "md_5", "1", true},
		{"no www", "https://spigotmc.org/members/md_5.1/", "md_5", "1", true},
		{"http", "http://www.spigotmc.org/members/md_5.1/", "md_5", "1", true},
		{"no trailing slash", "https://www.spigotmc.org/members/md_5.1", "md_5", "1", true},
		{"dots and dashes in slug", "https://www.spigotmc.org/members/some-user.name.123456/", "some-user.name", "123456", true},
		{"resource url", "https://www.spigotmc.org/resources/someplugin.42/", "", "", false},
		{"missing id", "https://www.spigotmc.org/members/md_5/", "", "", false},
		{"wrong host", "https://example.com/members/md_5.1/", "", "", false},
		{"trailing garbage", "https://www.spigotmc.org/members/md_5.1/extra", "", "", false},
		{"not a url", "md_5.1", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, id, ok := ParseProfileURL(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if slug != tt.wantSlug || id != tt.wantID {
				t.Errorf("got (%q, %q), want (%q, %q)", slug, id, tt.wantSlug, tt.wantID)
			}
		})
	}
}
