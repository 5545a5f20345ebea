package repositories_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
)

// The migration's CHECK constraints must accept exactly the values the Go
// enums can write, or valid input fails at the store instead of validation.
func TestMigrationChecksMatchDomainEnums(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "..", "migrations", "000001_init.up.sql"))
	require.NoError(t, err)
	ddl := string(raw)

	kinds := checkValues(t, ddl, "chk_plans_kind")
	assert.ElementsMatch(t, []string{
		string(plan.KindWithholding),
		string(plan.KindPortal),
		string(plan.KindAmnestyBase),
		string(plan.KindAmnestyReadmission),
		string(plan.KindOther),
	}, kinds)

	statuses := checkValues(t, ddl, "chk_plans_status")
	assert.ElementsMatch(t, []string{
		string(plan.StatusActive),
		string(plan.StatusLate),
		string(plan.StatusCompleted),
		string(plan.StatusDecayed),
		string(plan.StatusInterrupted),
		string(plan.StatusExtinguished),
	}, statuses)

	linkStatuses := checkValues(t, ddl, "chk_debt_link_status")
	assert.ElementsMatch(t, []string{
		string(plan.LinkActive),
		string(plan.LinkMigratedOut),
	}, linkStatuses)
}

// checkValues extracts the quoted members of a named CHECK ... IN (...) list.
func checkValues(t *testing.T, ddl, constraint string) []string {
	t.Helper()
	re := regexp.MustCompile(constraint + `\s+CHECK\s+\([a-z_]+\s+IN\s+\(([^)]*)\)`)
	m := re.FindStringSubmatch(ddl)
	require.NotNil(t, m, "constraint %s not found in migration", constraint)

	var out []string
	for _, part := range strings.Split(m[1], ",") {
		out = append(out, strings.Trim(strings.TrimSpace(part), "'"))
	}
	return out
}
