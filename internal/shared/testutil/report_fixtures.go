package testutil

// SampleReportGrid returns a grid laid out like the CME Silver_stocks report:
// title rows, a RECEIVED/WITHDRAWN header, depository blocks and labelled totals.
func SampleReportGrid() [][]string {
	return [][]string{
		{"", "", "", "", "", "", "", ""},
		{"", "COMMODITY EXCHANGE, INC.", "", "", "", "", "", ""},
		{"", "METAL DEPOSITORY STATISTICS", "", "", "", "", "", ""},
		{"", "Report Date: 1/23/2026", "", "", "", "", "", ""},
		{"", "Activity Date: 1/22/2026", "", "", "", "", "", ""},
		{"", "", "", "", "", "", "", ""},
		{"", "DEPOSITORY", "PREV TOTAL", "RECEIVED", "WITHDRAWN", "NET CHANGE", "ADJUSTMENT", "TOTAL TODAY"},
		{"", "ASAHI REFINING USA INC", "", "", "", "", "", ""},
		{"", "Registered", "1,000,000", "0", "0", "0", "0", "1,000,000"},
		{"", "Eligible", "2,500,000", "0", "100,000", "-100,000", "0", "2,400,000"},
		{"", "Total", "3,500,000", "0", "100,000", "-100,000", "0", "3,400,000"},
		{"", "BRINK'S INC", "", "", "", "", "", ""},
		{"", "Registered", "112,269,767", "0", "0", "0", "0", "112,269,767"},
		{"", "Eligible", "299,572,070", "0", "0", "0", "0", "299,572,070"},
		{"", "Total", "411,841,837", "0", "0", "0", "0", "411,841,837"},
		{"", "", "", "", "", "", "", ""},
		{"", "TOTAL REGISTERED", "113,269,767", "0", "0", "0", "0", "113,269,767"},
		{"", "TOTAL ELIGIBLE", "302,072,070", "0", "100,000", "-100,000", "0", "301,972,070"},
		{"", "COMBINED TOTAL", "415,341,837", "0", "100,000", "-100,000", "0", "415,241,837"},
		{"", "", "", "", "", "", "", ""},
	}
}
