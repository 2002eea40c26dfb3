package db

import "testing"

func TestDatabaseFromURL(t *testing.T) {
	cases := map[string]string{
		"mongodb://localhost:27017":                               defaultDatabase,
		"mongodb://localhost:27017/":                              defaultDatabase,
		"mongodb://u:p@localhost:27017/logistics?authSource=admin": "logistics",
		"mongodb+srv://u:p@cluster0.example.net/ops?retryWrites=1": "ops",
		"::not a url":                                             defaultDatabase,
	}
	for in, want := range cases {
		if got := DatabaseFromURL(in); got != want {
			t.Fatalf("DatabaseFromURL(%q): got=%q want=%q", in, got, want)
		}
	}
}
