package report

import (
	"strings"
	"testing"

	"github.com/dverney/dumpdiff/internal/diff"
	"github.com/dverney/dumpdiff/internal/schema"
)

func strPtr(s string) *string { return &s }

func TestRenderEmptyResult(t *testing.T) {
	got := Render(&diff.Result{})
	want := "Aucune différence de structure trouvée.\n"
	if got != want {
		t.Errorf("Render(empty) = %q, want %q", got, want)
	}
}

func TestRenderExclusiveTables(t *testing.T) {
	res := &diff.Result{
		OnlyInFirst:  []string{"archives", "logs"},
		OnlyInSecond: []string{"sessions"},
	}
	want := strings.Join([]string{
		"Tables présentes dans le premier fichier mais absentes dans le second:",
		"  - archives",
		"  - logs",
		"",
		"Tables présentes dans le second fichier mais absentes dans le premier:",
		"  - sessions",
		"",
	}, "\n")
	if got := Render(res); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRenderTableDiff(t *testing.T) {
	res := &diff.Result{
		Tables: []diff.TableDiff{{
			Name:           "utilisateurs",
			Charset:        &diff.Change{Old: "latin1", New: "utf8mb4"},
			Collation:      &diff.Change{Old: "latin1_swedish_ci", New: "utf8mb4_general_ci"},
			RemovedColumns: []string{"date_naissance"},
			AddedColumns: []*schema.Column{
				{Name: "age", Type: "int", Nullable: true},
			},
			ModifiedColumns: []diff.ColumnDiff{{
				Name:     "email",
				Type:     &diff.Change{Old: "varchar(100)", New: "varchar(255)"},
				Nullable: &diff.NullableChange{Old: false, New: true},
				Default:  &diff.DefaultChange{Old: nil, New: strPtr("''")},
			}},
			RemovedConstraints: []*schema.Constraint{
				{Kind: schema.Unique, Name: "idx_email", Columns: []string{"email"}},
			},
			AddedConstraints: []*schema.Constraint{
				{Kind: schema.ForeignKey, Name: "fk_ville", Columns: []string{"ville_id"},
					RefTable: "villes", RefColumns: []string{"id"}},
				{Kind: schema.Index, Name: "idx_nom", Columns: []string{"nom", "prenom"}},
			},
		}},
	}

	want := strings.Join([]string{
		"Différences pour la table `utilisateurs`:",
		"  Différence de jeu de caractères: latin1 -> utf8mb4",
		"  Différence de collation: latin1_swedish_ci -> utf8mb4_general_ci",
		"  Colonnes supprimées:",
		"    - date_naissance",
		"  Colonnes ajoutées:",
		"    + age int",
		"  Colonne modifiée: email",
		"    Type: varchar(100) -> varchar(255)",
		"    Nullable: NOT NULL -> NULL",
		"    Default: None -> ''",
		"  Contraintes supprimées:",
		"    - UNIQUE idx_email (email)",
		"  Contraintes ajoutées:",
		"    + FOREIGN KEY fk_ville (ville_id) REFERENCES villes (id)",
		"    + INDEX idx_nom (nom, prenom)",
		"",
	}, "\n")

	if got := Render(res); got != want {
		t.Errorf("Render =\n%q\nwant\n%q", got, want)
	}
}

func TestRenderOmitsEmptySections(t *testing.T) {
	res := &diff.Result{
		Tables: []diff.TableDiff{{
			Name: "commandes",
			AddedColumns: []*schema.Column{
				{Name: "statut", Type: "enum('en_attente','expediee')"},
			},
		}},
	}
	want := strings.Join([]string{
		"Différences pour la table `commandes`:",
		"  Colonnes ajoutées:",
		"    + statut enum('en_attente','expediee')",
		"",
	}, "\n")
	if got := Render(res); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
	if strings.Contains(Render(res), "supprimées") {
		t.Error("empty sections must not be rendered")
	}
}

func TestRenderCollationAppears(t *testing.T) {
	res := &diff.Result{
		Tables: []diff.TableDiff{{
			Name:      "t",
			Collation: &diff.Change{Old: "", New: "utf8mb4_unicode_ci"},
		}},
	}
	got := Render(res)
	if !strings.Contains(got, "  Différence de collation: None -> utf8mb4_unicode_ci") {
		t.Errorf("missing collation line with None placeholder, got %q", got)
	}
}

func TestFormatWritesRenderOutput(t *testing.T) {
	res := &diff.Result{OnlyInFirst: []string{"a"}}
	var buf strings.Builder
	if err := NewTextReporter(&buf).Format(res); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if buf.String() != Render(res) {
		t.Errorf("Format output %q differs from Render %q", buf.String(), Render(res))
	}
}
