// Package jobs はサインアップ後の資産配分を非同期ジョブとして処理します。
//
// 配分ルール:
//   - stocks: 1〜40 のランダム値
//   - funds: 1〜40 のランダム値
//   - bonds: 100 - (stocks + funds)
package jobs

import "math/rand/v2"

const maxRandomShare = 40

// randomAllocation は intn を使って配分を決めます。intn は [0, n) を返す関数です。
func randomAllocation(userID string, intn func(int) int) *Allocation {
	if intn == nil {
		intn = rand.IntN
	}
	stocks := intn(maxRandomShare) + 1
	funds := intn(maxRandomShare) + 1
	return &Allocation{
		UserID: userID,
		Stocks: stocks,
		Funds:  funds,
		Bonds:  100 - (stocks + funds),
	}
}
