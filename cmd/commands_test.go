package main

import (
	"strconv"
	"testing"

	"github.com/spf13/cobra"
)

func TestCountFlagDefaults(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		value *int
		want  int
	}{
		{flashcardsCmd, &flagCards, 10},
		{quizCmd, &flagQuestions, 5},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			if *tt.value != tt.want {
				t.Errorf("Expected default count %d, got %d", tt.want, *tt.value)
			}
			f := tt.cmd.Flags().Lookup("count")
			if f == nil || f.DefValue != strconv.Itoa(tt.want) || f.Value.String() != f.DefValue {
				t.Errorf("count flag out of sync with its default: %+v", f)
			}
		})
	}
}

func TestFlashcardAndQuizCountsAreIndependent(t *testing.T) {
	defer func() { flagCards, flagQuestions = 10, 5 }()

	if err := quizCmd.Flags().Set("count", "7"); err != nil {
		t.Fatal(err)
	}
	if flagCards != 10 || flagQuestions != 7 {
		t.Errorf("setting the quiz count changed the flashcard count: cards %d, questions %d", flagCards, flagQuestions)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"index", "ask", "delete", "flashcards", "quiz", "summary", "export", "search-export", "info", "history", "serve", "mcp"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
