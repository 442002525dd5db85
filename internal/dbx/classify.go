package dbx

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the store cares about.
const (
	codeUniqueViolation    = "23505"
	codeCheckViolation     = "23514"
	codeAdminShutdown      = "57P01"
	codeCannotConnectNow   = "57P03"
	codeTooManyConnections = "53300"
)

// Classify maps driver errors onto the store sentinels. Unique violations
// become common.ErrorConflict, check violations common.ErrorValidation and
// connection failures common.ErrorBackendUnavailable. The original error stays in the chain.
// Anything else is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrorConflict) ||
		errors.Is(err, common.ErrorValidation) ||
		errors.Is(err, common.ErrorBackendUnavailable) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return fmt.Errorf("%w: %w", common.ErrorConflict, err)
		case pgErr.Code == codeCheckViolation:
			return fmt.Errorf("%w: %w", common.ErrorValidation, err)
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == codeAdminShutdown,
			pgErr.Code == codeCannotConnectNow,
			pgErr.Code == codeTooManyConnections:
			return fmt.Errorf("%w: %w", common.ErrorBackendUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) ||
		errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", common.ErrorBackendUnavailable, err)
	}

	return err
}
