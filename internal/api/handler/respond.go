package handler

import (
	"log"
	"net/http"

	"trustpay/internal/common"
)

// respondWithServiceError maps a service error onto the HTTP taxonomy.
// Unexpected faults are logged server-side and surfaced only as a
// generic message.
func respondWithServiceError(w http.ResponseWriter, err error) {
	code := common.HTTPStatusFromError(err)
	if code == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		common.RespondWithError(w, code, common.ErrInternalServer.Error())
		return
	}
	common.RespondWithError(w, code, err.Error())
}
