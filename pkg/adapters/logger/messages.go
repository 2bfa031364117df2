package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Run level messages (info)
		"Indexed %d sequences from %d sources":             "%d 個のシーケンスを %d 個のソースから列挙しました",
		"Wrote batch %d to %s":                             "バッチ %d を %s に書き込みました",
		"Run completed: %d batches, %d samples, %d failed": "実行完了: %d バッチ, %d サンプル, 失敗 %d",
		"Clip saved to %s":                                 "クリップを %s に保存しました",
		"Interrupted, shutting down...":                    "中断されました。シャットダウン中...",

		// Sequence decoder (debug)
		"Opened %s: %s %dx%d, %d/%d fps":                   "%s を開きました: %s %dx%d, %d/%d fps",
		"Seek to frame %d failed: %v":                      "フレーム %d へのシークに失敗しました: %v",
		"Seeked to frame %d (%d us, pts %d)":               "フレーム %d へシークしました (%d us, pts %d)",
		"Stream ended after %d frames, padded %d slots":    "%d フレームでストリームが終了しました。%d スロットをゼロ埋めしました",
		"No conversion needed, copying %s frames directly": "変換不要のため %s フレームを直接コピーします",
		"Crop-resizing %v to %dx%d %s":                     "%v を %dx%d %s にクロップ・リサイズします",
		"Converting frames to %dx%d %s":                    "フレームを %dx%d %s に変換します",

		// Load stage
		"Loading batch %d: %d samples with %d workers":     "バッチ %d を読み込み中: %d サンプル, %d ワーカー",
		"Batch %d loaded: %d samples, %d failed, %d bytes": "バッチ %d 読み込み完了: %d サンプル, 失敗 %d, %d バイト",
		"Sample %d window %s, output %dx%d":                "サンプル %d のウィンドウ %s, 出力 %dx%d",
		"Skipping overlay for sample %d: %v":               "サンプル %d のオーバーレイを省略します: %v",
		"Skipping frame %d of sample %d: %v":               "フレーム %d (サンプル %d) を省略します: %v",

		// Synth stage
		"Generating %d frames at %dx%d, %.1f fps, keyframe every %d": "%d フレームを %dx%d, %.1f fps, キーフレーム間隔 %d で生成中",
		"Clip encoded: %d frames, %d bytes":                          "クリップのエンコード完了: %d フレーム, %d バイト",

		// Warnings
		"Sample %d (%s @ %d) failed: %v":                   "サンプル %d (%s @ %d) の読み込みに失敗しました: %v",
		"H.264 encoder not available, falling back to AV1": "H.264 エンコーダーが利用できないため AV1 にフォールバックします",

		// Errors
		"Failed to build index: %s":   "インデックスの作成に失敗しました: %s",
		"Failed to load batch %d: %s": "バッチ %d の読み込みに失敗しました: %s",
		"Failed to write output: %s":  "出力の書き込みに失敗しました: %s",
		"Failed to generate clip: %s": "クリップの生成に失敗しました: %s",
	})
}
