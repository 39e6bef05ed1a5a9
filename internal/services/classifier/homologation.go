package classifier

import (
	"github.com/kevin07696/card-gateway/internal/domain"
	pkgerrors "github.com/kevin07696/card-gateway/pkg/errors"
)

// CodeInfo is the localized view of a vendor error code
type CodeInfo struct {
	Code             string
	ProcessorCode    string
	ProcessorMessage string
	KushkiCode       domain.ErrorCode
	Category         pkgerrors.ErrorCategory
}

// Vendor codes with pipeline-level meaning
const (
	CodeUnreachable      = "228"
	CodeAlreadyProcessed = "577"
	CodeFailover         = "1007"
	CodeMissingTrxID     = "1003"
)

// Aurus-family vendor codes
var vendorCodes = map[string]CodeInfo{
	"000": {
		ProcessorCode:    "00",
		ProcessorMessage: "Transacción aprobada",
		Category:         pkgerrors.CategoryApproved,
	},
	"005": {
		ProcessorCode:    "05",
		ProcessorMessage: "Transacción no permitida por el emisor",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryDeclined,
	},
	"014": {
		ProcessorCode:    "14",
		ProcessorMessage: "Número de tarjeta inválido",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryInvalidCard,
	},
	"041": {
		ProcessorCode:    "41",
		ProcessorMessage: "Tarjeta reportada como perdida",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryFraud,
	},
	"043": {
		ProcessorCode:    "43",
		ProcessorMessage: "Tarjeta reportada como robada",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryFraud,
	},
	"051": {
		ProcessorCode:    "51",
		ProcessorMessage: "Fondos insuficientes",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryInsufficientFunds,
	},
	"054": {
		ProcessorCode:    "54",
		ProcessorMessage: "Tarjeta expirada",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryExpiredCard,
	},
	"057": {
		ProcessorCode:    "57",
		ProcessorMessage: "Transacción no permitida a la tarjeta",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryDeclined,
	},
	"059": {
		ProcessorCode:    "59",
		ProcessorMessage: "Sospecha de fraude",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryFraud,
	},
	"061": {
		ProcessorCode:    "61",
		ProcessorMessage: "Excede el límite de monto",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryInsufficientFunds,
	},
	"082": {
		ProcessorCode:    "82",
		ProcessorMessage: "CVV inválido",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryInvalidCard,
	},
	"091": {
		ProcessorCode:    "91",
		ProcessorMessage: "Emisor no disponible",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategorySystemError,
	},
	"096": {
		ProcessorCode:    "96",
		ProcessorMessage: "Error del sistema",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategorySystemError,
	},
	"211": {
		ProcessorCode:    "12",
		ProcessorMessage: "Transacción inválida",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryInvalidRequest,
	},
	"212": {
		ProcessorCode:    "03",
		ProcessorMessage: "Comercio inválido",
		KushkiCode:       domain.ErrorCodeInvalidMerchant,
		Category:         pkgerrors.CategoryInvalidRequest,
	},
	CodeUnreachable: {
		ProcessorCode:    "91",
		ProcessorMessage: "Procesador inalcanzable",
		KushkiCode:       domain.ErrorCodeProcessorUnreachable,
		Category:         pkgerrors.CategoryNetworkError,
	},
	CodeAlreadyProcessed: {
		ProcessorCode:    "94",
		ProcessorMessage: "Transacción duplicada",
		KushkiCode:       domain.ErrorCodeDuplicateTransaction,
		Category:         pkgerrors.CategoryInvalidRequest,
	},
	CodeFailover: {
		ProcessorCode:    "91",
		ProcessorMessage: "Procesador no disponible",
		KushkiCode:       domain.ErrorCodeProcessorUnreachable,
		Category:         pkgerrors.CategorySystemError,
	},
	CodeMissingTrxID: {
		ProcessorCode:    "96",
		ProcessorMessage: "Transacción sin identificador",
		KushkiCode:       domain.ErrorCodeUnexpected,
		Category:         pkgerrors.CategorySystemError,
	},
}

// Homologate retrieves the localized processor code and message of a vendor code.
// Unknown codes are reported as a generic decline carrying the vendor code.
func Homologate(code string) CodeInfo {
	if info, ok := vendorCodes[code]; ok {
		info.Code = code
		return info
	}
	if len(code) < 3 {
		if info, ok := vendorCodes["0"+padTwo(code)]; ok {
			info.Code = code
			return info
		}
	}
	return CodeInfo{
		Code:             code,
		ProcessorCode:    code,
		ProcessorMessage: "Transacción declinada",
		KushkiCode:       domain.ErrorCodeDeclined,
		Category:         pkgerrors.CategoryDeclined,
	}
}

func padTwo(code string) string {
	if len(code) == 1 {
		return "0" + code
	}
	return code
}
