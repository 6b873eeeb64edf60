package refdata

// KnownISINTickers maps ISINs of funds commonly seen in snapshots to
// their usual listing ticker. It seeds the identifier→symbol index so
// look-through works before any fund has been scraped.
var KnownISINTickers = map[string]string{
	"IE00B4L5Y983": "EUNL.DE",  // iShares Core MSCI World UCITS ETF
	"IE00B4L5YC18": "EIMI.DE",  // iShares MSCI Emerging Markets
	"IE00B3RBWM25": "VWRL.L",   // Vanguard FTSE All-World
	"IE00BK5BQT80": "VWCE.DE",  // Vanguard FTSE All-World (Acc)
	"IE00B8GKDB10": "VHYL.L",   // Vanguard FTSE All-World High Dividend Yield
	"IE00B4X9L533": "HMWO.DE",  // HSBC MSCI World
	"IE00BZ56RG20": "XDWD.DE",  // Xtrackers MSCI World
	"LU1681045370": "GERD.DE",  // Amundi MSCI Germany
	"LU0274208692": "DBXD.DE",  // Xtrackers DAX UCITS ETF
	"IE00B4L5YX21": "IQQH.DE",  // iShares MSCI Japan
	"LU0328475792": "DBXJ.DE",  // Xtrackers MSCI Japan
	"IE00B14X4M10": "EUNA.DE",  // iShares MSCI North America
	"IE00B53SZB19": "CSNDX.L",  // iShares NASDAQ 100
	"IE00B3XXRP09": "VUSA.L",   // Vanguard S&P 500
	"IE00B5BMR087": "CSPX.L",   // iShares Core S&P 500
}
