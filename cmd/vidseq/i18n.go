// Package main provides localization for the vidseq CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Input":             "入力",
		"Output":            "出力先",
		"Sequence":          "シーケンス",
		"Decoding":          "デコード設定",
		"Codecs":            "コーデック",
		"Video and Quality": "動画と品質",
		"Debug":             "デバッグ",
		"Logging":           "ログ",

		// Root command
		"Decode frame sequences from videos into training batches": "動画からフレームシーケンスをデコードし学習用バッチを作成",

		// Probe command
		"Show the streams of an MP4 file":                           "MP4ファイルのストリームを表示",
		"Stream %d: %s %dx%d, %d frames, %.3f fps, time base %d/%d": "ストリーム %d: %s %dx%d, %d フレーム, %.3f fps, タイムベース %d/%d",
		"Decoder: %s via %s":                                        "デコーダー: %s (%s)",
		"Decoder: unavailable (%s)":                                 "デコーダー: 利用不可 (%s)",

		// Decode command
		"Decode one sequence and save its frames as images": "1つのシーケンスをデコードしフレームを画像として保存",
		"Decoded %d frames at %dx%d (%s), window %s":        "%d フレームを %dx%d (%s) でデコードしました。ウィンドウ %s",
		"Output directory":                                  "出力ディレクトリ",
		"First frame of the sequence":                       "シーケンスの先頭フレーム",
		"Number of frames":                                  "フレーム数",
		"Distance between kept frames":                      "保持するフレームの間隔",
		"Decoder variant (plain, fused)":                    "デコーダーの種類（plain, fused）",
		"Output pixel format":                               "出力ピクセル形式",
		"Crop type (random, corner)":                        "クロップの種類（random, corner）",
		"Seed of the crop sampler":                          "クロップサンプラーのシード",
		"Output frame width":                                "出力フレームの幅",
		"Output frame height":                               "出力フレームの高さ",
		"Scale so the shorter side has this length":         "短辺がこの長さになるように拡大縮小",

		// Load command
		"Index source videos and write every batch to disk": "ソース動画を列挙し全バッチをディスクに書き込み",
		"YAML configuration file":                           "YAML設定ファイル",
		"Output directory (overrides config)":               "出力ディレクトリ（設定を上書き）",
		"Number of decode workers (overrides config)":       "デコードワーカー数（設定を上書き）",
		"Seed of the crop sampler (overrides config)":       "クロップサンプラーのシード（設定を上書き）",
		"Enable debug output":                               "デバッグ出力を有効化",
		"Directory for debug output (overrides config)":     "デバッグ出力先ディレクトリ（設定を上書き）",

		// Synth command
		"Generate a synthetic test clip":          "テスト用の合成クリップを生成",
		"Video codec (av1, h264)":                 "動画コーデック（av1, h264）",
		"Clip width":                              "クリップの幅",
		"Clip height":                             "クリップの高さ",
		"Frame rate":                              "フレームレート",
		"Frames between keyframes":                "キーフレーム間のフレーム数",
		"Video CRF value (0-63, lower is better)": "動画のCRF値（0-63、低いほど高品質）",
		"Fail instead of falling back to AV1":     "AV1にフォールバックせずエラーにする",
		"Encoding with %s via %s":                 "%s (%s) でエンコードします",

		// Version command
		"Show version information": "バージョン情報を表示",
		"vidseq version %s":        "vidseq バージョン %s",

		// Global flags
		"Log level (debug, info, warn, error)":     "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                  "すべてのログ出力を抑制",
		"Path to the ffmpeg binary used for H.264": "H.264で使用するffmpegのパス",

		// Summary document
		"Load Summary":    "読み込みサマリー",
		"Generated":       "生成日時",
		"Elapsed":         "所要時間",
		"Settings":        "設定",
		"Setting":         "項目",
		"Value":           "値",
		"Variant":         "デコーダーの種類",
		"Crop Type":       "クロップの種類",
		"Output Format":   "出力ピクセル形式",
		"Sequence Length": "シーケンス長",
		"Stride":          "フレーム間隔",
		"Output Size":     "出力サイズ",
		"Shorter side":    "短辺",
		"Batch Size":      "バッチサイズ",
		"Seed":            "シード",
		"Workers":         "ワーカー数",
		"Sources":         "ソース",
		"Source":          "ソース",
		"Sequences":       "シーケンス数",
		"Batches":         "バッチ",
		"Batch":           "バッチ",
		"Samples":         "サンプル数",
		"Failed":          "失敗",
		"Size":            "サイズ",
		"Total":           "合計",
		"None":            "なし",
		"Generated by":    "生成:",

		// Errors
		"A video file is required":   "動画ファイルを指定してください",
		"An output file is required": "出力ファイルを指定してください",
	})
}
