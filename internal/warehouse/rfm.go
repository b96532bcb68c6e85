package warehouse

import (
	"context"
	"fmt"
)

// RFMSegment is one customer's recency/frequency/monetary scoring row.
type RFMSegment struct {
	CustomerID string  `json:"customer_id"`
	Recency    int     `json:"recency"`
	Frequency  int     `json:"frequency"`
	Monetary   int     `json:"monetary"`
	TotalSpent float64 `json:"total_spent"`
	Segment    string  `json:"segment"`
}

// rfmQuery scores customers by quintile over the fact_sales table and maps
// score combinations onto named segments.
const rfmQuery = `
WITH rfm AS (
    SELECT
        customer_id,
        NTILE(5) OVER (ORDER BY MAX(order_date) DESC)    AS recency,
        NTILE(5) OVER (ORDER BY COUNT(*))                AS frequency,
        NTILE(5) OVER (ORDER BY SUM(total_amount))       AS monetary,
        SUM(total_amount)                                AS total_spent
    FROM fact_sales
    GROUP BY customer_id
)
SELECT
    customer_id,
    recency,
    frequency,
    monetary,
    total_spent,
    CASE
        WHEN recency <= 2 AND frequency >= 4 AND monetary >= 4 THEN 'Champions'
        WHEN recency <= 2 AND frequency >= 3                   THEN 'Loyal'
        WHEN recency <= 2                                      THEN 'Recent'
        WHEN frequency >= 4                                    THEN 'At Risk'
        ELSE 'Hibernating'
    END AS segment
FROM rfm
ORDER BY customer_id`

// RFMSegments runs the customer segmentation report against the warehouse.
func (l *Loader) RFMSegments(ctx context.Context) ([]RFMSegment, error) {
	rows, err := l.db.QueryContext(ctx, rfmQuery)
	if err != nil {
		return nil, fmt.Errorf("rfm query: %w", err)
	}
	defer rows.Close()

	var segments []RFMSegment
	for rows.Next() {
		var s RFMSegment
		if err := rows.Scan(&s.CustomerID, &s.Recency, &s.Frequency, &s.Monetary, &s.TotalSpent, &s.Segment); err != nil {
			return nil, fmt.Errorf("scan rfm row: %w", err)
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}
