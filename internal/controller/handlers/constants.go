package handlers

const (
	// callback data of the /novo kind keyboard
	CallbackNewPrefix  = "novo:"
	CallbackNewIncome  = CallbackNewPrefix + "income"
	CallbackNewExpense = CallbackNewPrefix + "expense"
	CallbackNewAbort   = CallbackNewPrefix + "abort"

	DescriptionMinLength = 2
	DescriptionMaxLength = 200

	// /parcelas window
	UpcomingDays = 30
	// /grafico span
	ChartMonths = 6
)
