package languages

import "testing"

// ///////////////////////////////////////////////
// Classify
// ///////////////////////////////////////////////

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		file string
		want Tag
	}{
		{"dockerfile exact", "Dockerfile", Docker},
		{"gitignore exact", ".gitignore", Git},
		{"java", "a.java", Java},
		{"uppercase extension", "a.JAVA", Java},
		{"no extension", "noext", Unknown},
		{"trailing dot", "a.", Unknown},
		{"unknown extension", "a.zzz", Unknown},
		{"path is stripped", "/home/me/src/Main.go", Go},
		{"exact name beats extension", "pom.xml", Maven},
		{"plain xml", "layout.xml", XML},
		{"sbt build file", "build.sbt", SBT},
		{"class file", "Foo.class", Binary},
		{"multiple dots", "archive.test.ts", TypeScript},
		{"empty", "", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.file); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for range 10 {
		if got := Classify("Dockerfile"); got != Docker {
			t.Fatalf("Classify(Dockerfile) = %q", got)
		}
	}
}

// ///////////////////////////////////////////////
// DisplayName / HoverText
// ///////////////////////////////////////////////

func TestDisplayName(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{Java, "Java"},
		{CPP, "C++"},
		{CSharp, "C#"},
		{Unknown, "Unknown"},
		{Tag(""), ""},
	}
	for _, tt := range tests {
		if got := tt.tag.DisplayName(); got != tt.want {
			t.Errorf("%q.DisplayName() = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestHoverText(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{Java, "Programming in Java"},
		{TypeScript, "Programming in TypeScript"},
		{Binary, "Reading a binary file"},
		{Unknown, "Editing a file of unknown type"},
		{Docker, "Configuring Docker"},
		{Git, "Configuring Git"},
		{Terminal, "Using the terminal"},
		{Text, "Editing a plain text file"},
		{SBT, "Building with sbt"},
	}
	for _, tt := range tests {
		if got := HoverText(tt.tag); got != tt.want {
			t.Errorf("HoverText(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
