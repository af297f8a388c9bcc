package knowledge

// Intent identifiers of the compiled-in table.
const (
	IntentDataUpload    = "data_upload"
	IntentChartCreation = "chart_creation"
	IntentDataFiltering = "data_filtering"
	IntentExportResults = "export_results"
)

var defaultBase = MustNew(
	Entry{
		Intent:   IntentDataUpload,
		Keywords: []string{"upload", "import", "data", "file", "上傳", "導入", "檔案"},
		Response: "要上傳數據，請按照以下步驟：\n" +
			"1. 點擊左上角的「數據導入」按鈕\n" +
			"2. 選擇文件格式（CSV, Excel, JSON）\n" +
			"3. 拖拽文件或點擊瀏覽\n" +
			"4. 確認數據預覽後點擊「確認導入」\n\n" +
			"支援的文件大小最大為100MB。",
		Related: []string{IntentChartCreation, IntentDataFiltering},
	},
	Entry{
		Intent:   IntentChartCreation,
		Keywords: []string{"chart", "graph", "visualization", "plot", "圖表", "視覺化", "繪圖"},
		Response: "創建圖表的步驟：\n" +
			"1. 在右側面板選擇「圖表工具」\n" +
			"2. 選擇圖表類型（折線圖、柱狀圖、散點圖等）\n" +
			"3. 拖拽字段到X軸和Y軸區域\n" +
			"4. 調整顏色和樣式設定\n" +
			"5. 點擊「生成圖表」\n\n" +
			"提示：建議先清理數據以獲得更好的視覺效果。",
		Related: []string{IntentDataFiltering, IntentExportResults},
	},
	Entry{
		Intent:   IntentDataFiltering,
		Keywords: []string{"filter", "search", "query", "condition", "篩選", "搜尋", "查詢", "條件"},
		Response: "數據篩選功能：\n" +
			"1. 在數據表格上方找到「篩選器」圖標\n" +
			"2. 點擊要篩選的欄位標題\n" +
			"3. 設定篩選條件（等於、大於、包含等）\n" +
			"4. 輸入篩選值\n" +
			"5. 點擊「應用篩選」\n\n" +
			"您也可以組合多個篩選條件進行複雜查詢。",
		Related: []string{IntentExportResults, IntentChartCreation},
	},
	Entry{
		Intent:   IntentExportResults,
		Keywords: []string{"export", "download", "save", "output", "匯出", "下載", "儲存", "輸出"},
		Response: "匯出結果的方法：\n" +
			"1. 選擇要匯出的內容（表格、圖表或報告）\n" +
			"2. 點擊右上角的「匯出」按鈕\n" +
			"3. 選擇格式（PDF、Excel、PNG、CSV）\n" +
			"4. 設定匯出選項（包含原始數據、圖表樣式等）\n" +
			"5. 點擊「開始匯出」\n\n" +
			"匯出的文件會自動下載到您的下載資料夾。",
		Related: []string{IntentDataUpload, IntentChartCreation},
	},
)

// Default returns the compiled-in knowledge base.
func Default() *Base {
	return defaultBase
}
