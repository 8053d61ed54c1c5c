package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateCategoryName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		// Valid cases
		{"simple name", "themes", false, ""},
		{"with hyphen", "mu-plugins", false, ""},
		{"with underscore", "wp_content", false, ""},
		{"with numbers", "uploads2", false, ""},

		// Invalid cases - path traversal
		{"path traversal simple", "../etc", true, "path traversal"},
		{"slash", "wp/uploads", true, "path traversal"},
		{"backslash", `wp\uploads`, true, "path traversal"},
		{"double dot only", "..", true, "path traversal"},

		// Invalid cases - format
		{"empty", "", true, "cannot be empty"},
		{"starts with hyphen", "-themes", true, "invalid category name format"},
		{"ends with underscore", "themes_", true, "invalid category name format"},
		{"uppercase", "Themes", true, "invalid category name format"},
		{"dot", "my.themes", true, "invalid category name format"},
		{"spaces", "my themes", true, "invalid category name format"},
		{"adjacent separators", "my--themes", true, "invalid category name format"},
		{"too long", strings.Repeat("a", 65), true, "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCategoryName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateCategoryName(%q) expected error containing %q, got nil", tt.input, tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateCategoryName(%q) error = %q, want error containing %q", tt.input, err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("ValidateCategoryName(%q) unexpected error: %v", tt.input, err)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/backups", filepath.Join(home, "backups")},
		{"~", home},
		{"/var/backups", "/var/backups"},
		{"relative/dir", "relative/dir"},
		{"~user/dir", "~user/dir"},
	}

	for _, tt := range tests {
		if got := ExpandHome(tt.input); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateSourceDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "wp-config.php")
	if err := os.WriteFile(file, []byte("<?php"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ValidateSourceDir(dir + "/./")
	if err != nil {
		t.Fatalf("ValidateSourceDir(%q) unexpected error: %v", dir, err)
	}
	if got != filepath.Clean(dir) {
		t.Errorf("ValidateSourceDir(%q) = %q, want %q", dir, got, filepath.Clean(dir))
	}

	for _, input := range []string{"", file, filepath.Join(dir, "missing")} {
		if _, err := ValidateSourceDir(input); err == nil {
			t.Errorf("ValidateSourceDir(%q) expected error, got nil", input)
		}
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		errMsg   string
		wantPath string
	}{
		// Valid cases
		{"simple", "myfile", false, "", "myfile"},
		{"nested", "dir/file", false, "", "dir/file"},
		{"with dots in name", "file.txt", false, "", "file.txt"},
		{"leading dots in name", "..hidden", false, "", "..hidden"},

		// Invalid cases
		{"empty", "", true, "cannot be empty", ""},
		{"path traversal", "../etc/passwd", true, "path traversal", ""},
		{"hidden traversal", "dir/../../../etc", true, "path traversal", ""},
		{"absolute path", "/etc/passwd", true, "absolute paths not allowed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePath(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidatePath(%q) expected error containing %q, got nil", tt.input, tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidatePath(%q) error = %q, want error containing %q", tt.input, err.Error(), tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("ValidatePath(%q) unexpected error: %v", tt.input, err)
				}
				if got != tt.wantPath {
					t.Errorf("ValidatePath(%q) = %q, want %q", tt.input, got, tt.wantPath)
				}
			}
		})
	}
}

func TestValidatePathWithinRoot(t *testing.T) {
	tests := []struct {
		name     string
		rootDir  string
		fullPath string
		wantErr  bool
	}{
		{"within root", "/backups", "/backups/site-db-20260207-030000.zip", false},
		{"nested within root", "/backups", "/backups/old/file.zip", false},
		{"exact root", "/backups", "/backups", false},
		{"escapes root", "/backups", "/etc/passwd", true},
		{"traversal escape", "/backups", "/backups/../etc/passwd", true},
		{"prefix sibling", "/backups", "/backups-old/file.zip", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinRoot(tt.rootDir, tt.fullPath)
			if tt.wantErr && err == nil {
				t.Errorf("ValidatePathWithinRoot(%q, %q) expected error, got nil", tt.rootDir, tt.fullPath)
			} else if !tt.wantErr && err != nil {
				t.Errorf("ValidatePathWithinRoot(%q, %q) unexpected error: %v", tt.rootDir, tt.fullPath, err)
			}
		})
	}
}
