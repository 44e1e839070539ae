// Package report renders a diff result as the fixed human-readable text
// layout. Labels, punctuation and indentation are part of the output
// contract and must not change.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dverney/dumpdiff/internal/diff"
	"github.com/dverney/dumpdiff/internal/schema"
)

// noDifferences is emitted when the two schemas are structurally identical.
const noDifferences = "Aucune différence de structure trouvée."

// TextReporter writes diff results as text.
type TextReporter struct {
	writer io.Writer
}

// NewTextReporter creates a reporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{writer: w}
}

// Format writes the full report for res, newline-terminated.
func (r *TextReporter) Format(res *diff.Result) error {
	_, err := io.WriteString(r.writer, Render(res))
	return err
}

// Render returns the report as a single string with \n separators.
func Render(res *diff.Result) string {
	if res.Empty() {
		return noDifferences + "\n"
	}

	var lines []string
	if len(res.OnlyInFirst) > 0 {
		lines = append(lines, "Tables présentes dans le premier fichier mais absentes dans le second:")
		for _, name := range res.OnlyInFirst {
			lines = append(lines, "  - "+name)
		}
		lines = append(lines, "")
	}
	if len(res.OnlyInSecond) > 0 {
		lines = append(lines, "Tables présentes dans le second fichier mais absentes dans le premier:")
		for _, name := range res.OnlyInSecond {
			lines = append(lines, "  - "+name)
		}
		lines = append(lines, "")
	}
	for i := range res.Tables {
		lines = append(lines, tableLines(&res.Tables[i])...)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func tableLines(d *diff.TableDiff) []string {
	lines := []string{fmt.Sprintf("Différences pour la table `%s`:", d.Name)}
	if d.Charset != nil {
		lines = append(lines, fmt.Sprintf("  Différence de jeu de caractères: %s -> %s",
			orNone(d.Charset.Old), orNone(d.Charset.New)))
	}
	if d.Collation != nil {
		lines = append(lines, fmt.Sprintf("  Différence de collation: %s -> %s",
			orNone(d.Collation.Old), orNone(d.Collation.New)))
	}
	if len(d.RemovedColumns) > 0 {
		lines = append(lines, "  Colonnes supprimées:")
		for _, name := range d.RemovedColumns {
			lines = append(lines, "    - "+name)
		}
	}
	if len(d.AddedColumns) > 0 {
		lines = append(lines, "  Colonnes ajoutées:")
		for _, col := range d.AddedColumns {
			lines = append(lines, fmt.Sprintf("    + %s %s", col.Name, col.Type))
		}
	}
	for _, cd := range d.ModifiedColumns {
		lines = append(lines, "  Colonne modifiée: "+cd.Name)
		if cd.Type != nil {
			lines = append(lines, fmt.Sprintf("    Type: %s -> %s", cd.Type.Old, cd.Type.New))
		}
		if cd.Nullable != nil {
			lines = append(lines, fmt.Sprintf("    Nullable: %s -> %s",
				nullability(cd.Nullable.Old), nullability(cd.Nullable.New)))
		}
		if cd.Default != nil {
			lines = append(lines, fmt.Sprintf("    Default: %s -> %s",
				defaultString(cd.Default.Old), defaultString(cd.Default.New)))
		}
	}
	if len(d.RemovedConstraints) > 0 {
		lines = append(lines, "  Contraintes supprimées:")
		for _, con := range d.RemovedConstraints {
			lines = append(lines, "    - "+constraintString(con))
		}
	}
	if len(d.AddedConstraints) > 0 {
		lines = append(lines, "  Contraintes ajoutées:")
		for _, con := range d.AddedConstraints {
			lines = append(lines, "    + "+constraintString(con))
		}
	}
	return lines
}

func constraintString(con *schema.Constraint) string {
	s := fmt.Sprintf("%s %s (%s)", con.Kind, con.Name, strings.Join(con.Columns, ", "))
	if con.Kind == schema.ForeignKey {
		s += fmt.Sprintf(" REFERENCES %s (%s)", con.RefTable, strings.Join(con.RefColumns, ", "))
	}
	return s
}

func nullability(nullable bool) string {
	if nullable {
		return "NULL"
	}
	return "NOT NULL"
}

func defaultString(v *string) string {
	if v == nil {
		return "None"
	}
	return *v
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
