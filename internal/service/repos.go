package service

import (
	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/repository"
)

// FeeRepos bundles the repositories the fee pipeline reads and writes.
type FeeRepos struct {
	Members       repository.MemberRepo
	CommuneGroups repository.CommuneGroupRepo
	Schedules     repository.ScheduleRepo
	AgeBrackets   repository.AgeBracketRepo
	IncomeConfigs repository.IncomeConfigRepo
	LegacyRules   repository.LegacyRuleRepo
	Trees         repository.TreeRepo
	Payments      repository.PaymentRepo
}

// NewSQLiteFeeRepos binds every repository to conn, which may be a
// database handle or a transaction.
func NewSQLiteFeeRepos(conn db.DBTX) FeeRepos {
	return FeeRepos{
		Members:       repository.NewSQLiteMemberRepo(conn),
		CommuneGroups: repository.NewSQLiteCommuneGroupRepo(conn),
		Schedules:     repository.NewSQLiteScheduleRepo(conn),
		AgeBrackets:   repository.NewSQLiteAgeBracketRepo(conn),
		IncomeConfigs: repository.NewSQLiteIncomeConfigRepo(conn),
		LegacyRules:   repository.NewSQLiteLegacyRuleRepo(conn),
		Trees:         repository.NewSQLiteTreeRepo(conn),
		Payments:      repository.NewSQLitePaymentRepo(conn),
	}
}
