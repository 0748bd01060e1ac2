package core

import "testing"

func TestFileNameFlattensKinds(t *testing.T) {
	cases := map[string]string{
		"profile":          "profile.json",
		"app::profile":     "app_profile.json",
		"app:session":      "app_session.json",
		"a.b/c\\d e":       "a_b_c_d_e.json",
		"  padded::kind  ": "padded_kind.json",
		"../../etc/passwd": "______etc_passwd.json",
	}
	for kind, want := range cases {
		if got := FileName(kind, ".json"); got != want {
			t.Fatalf("FileName(%q) = %q, want %q", kind, got, want)
		}
	}
}

func TestFileNameHonorsExtension(t *testing.T) {
	if got := FileName("app::profile", ".yaml"); got != "app_profile.yaml" {
		t.Fatalf("got %q", got)
	}
}
