package linear

import (
	"fmt"
	"strings"
)

// Summary は回帰結果の要約をR言語のsummary(lm(...))風のテキストで返す。
// WithLRStats(true) で学習したモデルでのみ利用できる。
func (lr *LinearRegression) Summary() (string, error) {
	stats, err := lr.Stats()
	if err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString("Residuals:\n")
	b.WriteString(fmt.Sprintf("%10s %10s %10s %10s %10s\n", "Min", "1Q", "Median", "3Q", "Max"))
	b.WriteString(fmt.Sprintf("%10.4f %10.4f %10.4f %10.4f %10.4f\n\n",
		stats.Residuals.Min, stats.Residuals.Q1, stats.Residuals.Median,
		stats.Residuals.Q3, stats.Residuals.Max))

	b.WriteString("Coefficients:\n")
	b.WriteString(fmt.Sprintf("%-12s %12s %12s %9s %12s\n",
		"", "Estimate", "Std. Error", "t value", "Pr(>|t|)"))
	for i, beta := range stats.Betas {
		b.WriteString(fmt.Sprintf("%-12s %12.6f %12.6f %9.3f %12.4g %s\n",
			lr.termName(i), beta, stats.StandardErrors[i],
			stats.TStatistics[i], stats.PValues[i],
			significanceCode(stats.PValues[i])))
	}
	b.WriteString("---\n")
	b.WriteString("Signif. codes:  0 '***' 0.001 '**' 0.01 '*' 0.05 '.' 0.1 ' ' 1\n\n")

	b.WriteString(fmt.Sprintf("Residual standard error: %.4f on %d degrees of freedom\n",
		stats.ResidualStdError, stats.DegreesOfFreedom))
	b.WriteString(fmt.Sprintf("Multiple R-squared: %.4f, Adjusted R-squared: %.4f\n",
		stats.RSquared, stats.AdjRSquared))
	b.WriteString(fmt.Sprintf("F-statistic: %.4g on %d and %d DF, p-value: %.4g\n",
		stats.FStatistic, stats.NumPredictors, stats.DegreesOfFreedom, stats.FPValue))

	return b.String(), nil
}

// termName は係数ベクトルのi番目の要素に対応する項名を返す
func (lr *LinearRegression) termName(i int) string {
	if lr.fitIntercept {
		if i == 0 {
			return "(Intercept)"
		}
		return fmt.Sprintf("x%d", i)
	}
	return fmt.Sprintf("x%d", i+1)
}

// significanceCode はp値に対応する有意水準の記号を返す
func significanceCode(p float64) string {
	switch {
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	case p < 0.1:
		return "."
	default:
		return " "
	}
}
