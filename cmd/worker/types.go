package main

// CloudWatch metric names, one per projected event type.
const (
	MetricOrdersPaid         = "OrdersPaid"
	MetricRevenue            = "Revenue"
	MetricOrdersCanceled     = "OrdersCanceled"
	MetricLibrariansApproved = "LibrariansApproved"
)

// DimensionCurrency splits revenue by currency.
const DimensionCurrency = "Currency"
