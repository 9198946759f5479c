package analysis

import (
	"reflect"
	"strings"
	"testing"

	"github.com/rachid48133/studygenie/internal/models"
)

func TestExtractMethodologies(t *testing.T) {
	text := "Méthode :\n- mesurer U\n- mesurer I\n- calculer R = U / I\nFin.\n"

	m := ExtractMethodologies(text)

	if !m.HasMethodology {
		t.Fatal("Expected a methodology")
	}
	if len(m.Methodologies) != 1 || !strings.HasPrefix(m.Methodologies[0], "Méthode :") {
		t.Errorf("unexpected methodologies %q", m.Methodologies)
	}
	if !strings.Contains(m.Methodologies[0], "- calculer R = U / I") {
		t.Errorf("list items missing from %q", m.Methodologies[0])
	}
	if len(m.Formulas) == 0 || m.Formulas[0] != "R = U / I" {
		t.Errorf("unexpected formulas %q", m.Formulas)
	}
}

func TestExtractMethodologies_EnglishAndCaps(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 7; i++ {
		b.WriteString("Steps:\n1 read\n2 solve\n\n")
	}
	for i := 0; i < 12; i++ {
		b.WriteString("x = a + b + c\n")
	}

	m := ExtractMethodologies(b.String())

	if len(m.Methodologies) != maxMethodologies {
		t.Errorf("Expected %d methodologies, got %d", maxMethodologies, len(m.Methodologies))
	}
	if len(m.Formulas) != maxFormulas {
		t.Errorf("Expected %d formulas, got %d", maxFormulas, len(m.Formulas))
	}
}

func TestExtractMethodologies_None(t *testing.T) {
	m := ExtractMethodologies("Un paragraphe sans liste.")
	if m.HasMethodology || len(m.Methodologies) != 0 {
		t.Errorf("Expected no methodology, got %+v", m)
	}
}

func TestDetectExerciseType(t *testing.T) {
	tests := []struct {
		question, context string
		want              models.ExerciseType
	}{
		{"Calculez la résistance", "", models.ExerciseCalculation},
		{"Démontrez que P = U × I", "", models.ExerciseDemonstration},
		{"Comparez les deux montages", "", models.ExerciseAnalysis},
		{"Appliquez la méthode", "", models.ExerciseApplication},
		{"Compute the current", "", models.ExerciseCalculation},
		{"Prove the theorem", "", models.ExerciseDemonstration},
		{"Qu'est-ce qu'un ohm ?", "", models.ExerciseGeneral},
		// context keywords count too, and calculation outranks analysis
		{"Expliquez", "on calcule ensuite la tension", models.ExerciseCalculation},
	}
	for _, tt := range tests {
		if got := DetectExerciseType(tt.question, tt.context); got != tt.want {
			t.Errorf("DetectExerciseType(%q, %q) = %s, want %s", tt.question, tt.context, got, tt.want)
		}
	}
}

func TestSubQuestionMarkers(t *testing.T) {
	got := SubQuestionMarkers("Donne A) la tension, b) le courant et a) encore")
	want := []string{"a)", "b)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SubQuestionMarkers = %q, want %q", got, want)
	}
	if !HasMultipleParts("a) puis b)") {
		t.Error("Expected multiple parts")
	}
	if HasMultipleParts("Que vaut f(x) ?") {
		t.Error("a single marker is not a multi-part question")
	}
}
