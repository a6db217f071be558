package email

const (
	subjectVoucherCreationFailedFmt    = "Factura no emitida: venta %s"
	subjectVoucherMonitoringExpiredFmt = "Factura sin autorizar: venta %s"
)
