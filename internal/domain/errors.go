package domain

import "errors"

// Доменные ошибки - используются во всех слоях приложения

// Record errors
var (
	ErrRecordNotFound         = errors.New("parking record not found")
	ErrInvalidRecordData      = errors.New("invalid parking record data")
	ErrInvalidPlate           = errors.New("invalid license plate")
	ErrInvalidTimestamp       = errors.New("invalid timestamp")
	ErrInvalidDateRange       = errors.New("exit time is before entry time")
	ErrEntryInFuture          = errors.New("entry time is in the future")
	ErrInvalidRecordStatus    = errors.New("invalid record status")
	ErrInvalidTotal           = errors.New("invalid total")
	ErrVehicleAlreadyParked   = errors.New("vehicle already has an active stay")
	ErrRecordAlreadyFinalized = errors.New("parking record already finalized")
)

// Settings errors
var (
	ErrInvalidTariff     = errors.New("invalid tariff")
	ErrInvalidPaperWidth = errors.New("invalid paper width")
	ErrUnknownCurrency   = errors.New("unknown currency")
	ErrSettingsNotFound  = errors.New("settings not found")
)

// Printer (transport) errors
var (
	ErrPrinterNotConnected = errors.New("printer is not connected, reconnect it in settings")
	ErrUnknownHardwareType = errors.New("unknown hardware type")
	ErrReconnectFailed     = errors.New("could not reconnect to the printer, power-cycle the device")
	ErrNoWriteChannel      = errors.New("no write channel found on the printer")
	ErrChunkWriteFailed    = errors.New("failed to write data to the printer")
	ErrPortLocked          = errors.New("serial port writer is already locked")
	ErrUnknownPrintFailure = errors.New("unknown error while printing")
	ErrPrintHistoryEmpty   = errors.New("print history item not found")
)

// Discovery errors
var (
	ErrBluetoothUnavailable = errors.New("bluetooth is not available on this host")
	ErrSerialUnavailable    = errors.New("serial ports are not available on this host")
	ErrSelectionCancelled   = errors.New("device selection cancelled")
	ErrPermissionBlocked    = errors.New("blocked by host policy: run the service with bluetooth/serial device permissions")
	ErrNotAPrinter          = errors.New("device has no write capability (does not look like a printer)")
	ErrNoGATT               = errors.New("device does not support GATT")
)

// Sync errors
var (
	ErrInvalidSheetURL = errors.New("invalid Google Apps Script URL")
	ErrSyncInProgress  = errors.New("sync already in progress")
	ErrSyncNotEnabled  = errors.New("cloud sync is not configured")
	ErrRemoteRejected  = errors.New("remote sheet rejected the request")
)

// Authorization errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// General errors
var (
	ErrInternal   = errors.New("internal server error")
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)
