package security

import "testing"

func TestValidateRepoOwner(t *testing.T) {
	tests := []struct {
		owner  string
		wantOK bool
	}{
		{"acme", true},
		{"a", true},
		{"acme-corp", true},
		{"Acme-Corp-42", true},
		{"a-b-c", true},
		{"", false},
		{"-acme", false},
		{"acme-", false},
		{"ac--me", false},
		{"acme_corp", false},
		{"acme corp", false},
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},   // 39 chars
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false}, // 40 chars
	}

	for _, tt := range tests {
		t.Run(tt.owner, func(t *testing.T) {
			err := ValidateRepoOwner(tt.owner)
			if tt.wantOK && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("expected invalid")
			}
		})
	}
}

func TestValidateRepoName(t *testing.T) {
	tests := []struct {
		name   string
		wantOK bool
	}{
		{"widgets", true},
		{"widgets.io", true},
		{"my_repo-2", true},
		{".github", true},
		{"", false},
		{"bad name", false},
		{"nested..dots", false},
		{"repo.git", false},
		{"repo.GIT", false},
		{"repo.github", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRepoName(tt.name)
			if tt.wantOK && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("expected invalid")
			}
		})
	}
}

func TestNormalizeRepo(t *testing.T) {
	owner, name, err := NormalizeRepo("Acme", "Widgets.IO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "acme" || name != "widgets.io" {
		t.Errorf("got %s/%s, want acme/widgets.io", owner, name)
	}

	if _, _, err := NormalizeRepo("-bad", "widgets"); err == nil {
		t.Error("expected owner validation to fail")
	}
	if _, _, err := NormalizeRepo("acme", "bad name"); err == nil {
		t.Error("expected name validation to fail")
	}
}
