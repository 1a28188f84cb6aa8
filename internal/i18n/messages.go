package i18n

// Message keys.
const (
	Welcome            = "welcome"
	Help               = "help"
	LangSet            = "lang_set"
	LangUsage          = "lang_usage"
	NoPDFs             = "no_pdfs"
	FilesCleared       = "files_cleared"
	URLUsage           = "url_usage"
	OCRUsage           = "ocr_usage"
	SplitUsage         = "split_usage"
	CompressionMenu    = "compression_menu"
	CompressionSet     = "compression_set"
	ImageReceived      = "image_received"
	InvalidImage       = "invalid_image"
	NoImages           = "no_images"
	Processing         = "processing"
	ConversionDone     = "conversion_done"
	ConversionDoneMany = "conversion_done_many"
	SizeInfo           = "size_info"
	SizeInfoMany       = "size_info_many"
	ConversionError    = "conversion_error"
	UnsupportedFormat  = "unsupported_format"
	PDFReceived        = "pdf_received"
	DocumentReceived   = "document_received"
	DocumentSuccess    = "document_success"
	DocumentError      = "document_error"
	URLConverting      = "url_converting"
	MergeDone          = "merge_done"
	SplitDone          = "split_done"
	CompressDone       = "compress_done"
	OCRDone            = "ocr_done"
	OCRText            = "ocr_text"
	OCRNoText          = "ocr_no_text"
	DeliveryTimeout    = "delivery_timeout"
	DebugSaved         = "debug_saved"
	Queued             = "queued"
	NotAllowed         = "not_allowed"
	DownloadFailed     = "download_failed"
	InternalError      = "internal_error"
)

// Messages containing a literal percent sign are always rendered with args.
var messages = map[string]map[Locale]string{
	Welcome: {
		EN: "🖼️ *File to PDF Converter Bot*\n\n" +
			"Welcome! I can convert your files to PDF.\n\n" +
			"*Features:*\n" +
			"• Images → PDF\n" +
			"• Office docs → PDF (DOCX, PPTX, XLSX)\n" +
			"• Text/Markdown → PDF (TXT, MD)\n" +
			"• HTML/URL → PDF\n" +
			"• PDF tools (merge, split, compress, OCR)\n\n" +
			"Use the command menu to get started.",
		DE: "🖼️ *Datei-zu-PDF Bot*\n\n" +
			"Willkommen! Ich kann Dateien in PDF umwandeln.\n\n" +
			"*Funktionen:*\n" +
			"• Bilder → PDF\n" +
			"• Office-Dokumente → PDF (DOCX, PPTX, XLSX)\n" +
			"• Text/Markdown → PDF (TXT, MD)\n" +
			"• HTML/URL → PDF\n" +
			"• PDF-Tools (Zusammenführen, Teilen, Komprimieren, OCR)\n\n" +
			"Nutze das Befehlsmenü, um zu starten.",
		FA: "🖼️ *ربات تبدیل به PDF*\n\n" +
			"خوش آمدید! می‌توانم فایل‌ها را به PDF تبدیل کنم.\n\n" +
			"*امکانات:*\n" +
			"• تصویر → PDF\n" +
			"• اسناد آفیس → PDF (DOCX, PPTX, XLSX)\n" +
			"• متن/مارک‌داون → PDF (TXT, MD)\n" +
			"• HTML/URL → PDF\n" +
			"• ابزارهای PDF (ادغام، تقسیم، فشرده‌سازی، OCR)\n\n" +
			"برای شروع از منوی دستورات استفاده کنید.",
	},
	Help: {
		EN: "📖 *Help*\n\n" +
			"*Supported:* JPG/PNG/BMP/TIFF/GIF/WebP, DOCX/PPTX/XLSX, TXT/MD, HTML/HTM, PDF\n\n" +
			"*Images:* send images, then /convert\n" +
			"*PDF Tools:* /merge /split /compress\\_pdf /ocr\n" +
			"*URL:* /url2pdf https://example.com\n" +
			"*Language:* /lang en|de|fa\n",
		DE: "📖 *Hilfe*\n\n" +
			"*Unterstützt:* JPG/PNG/BMP/TIFF/GIF/WebP, DOCX/PPTX/XLSX, TXT/MD, HTML/HTM, PDF\n\n" +
			"*Bilder:* Bilder senden, dann /convert\n" +
			"*PDF-Tools:* /merge /split /compress\\_pdf /ocr\n" +
			"*URL:* /url2pdf https://example.com\n" +
			"*Sprache:* /lang en|de|fa\n",
		FA: "📖 *راهنما*\n\n" +
			"*پشتیبانی:* JPG/PNG/BMP/TIFF/GIF/WebP, DOCX/PPTX/XLSX, TXT/MD, HTML/HTM, PDF\n\n" +
			"*تصاویر:* تصاویر را بفرستید، سپس /convert\n" +
			"*ابزارهای PDF:* /merge /split /compress\\_pdf /ocr\n" +
			"*URL:* /url2pdf https://example.com\n" +
			"*زبان:* /lang en|de|fa\n",
	},
	LangSet: {
		EN: "✅ Language set to English.",
		DE: "✅ Sprache auf Deutsch eingestellt.",
		FA: "✅ زبان روی فارسی تنظیم شد.",
	},
	LangUsage: {
		EN: "Usage: /lang en|de|fa",
		DE: "Verwendung: /lang en|de|fa",
		FA: "نحوه استفاده: /lang en|de|fa",
	},
	NoPDFs: {
		EN: "❌ No PDFs pending. Send PDF files first.",
		DE: "❌ Keine PDFs vorhanden. Bitte zuerst PDFs senden.",
		FA: "❌ هیچ PDFی موجود نیست. ابتدا PDF بفرستید.",
	},
	FilesCleared: {
		EN: "🗑️ Cleared all pending files!",
		DE: "🗑️ Alle ausstehenden Dateien wurden gelöscht!",
		FA: "🗑️ همه فایل‌های در صف پاک شد!",
	},
	URLUsage: {
		EN: "Usage: /url2pdf https://example.com",
		DE: "Verwendung: /url2pdf https://example.com",
		FA: "نحوه استفاده: /url2pdf https://example.com",
	},
	OCRUsage: {
		EN: "Usage: /ocr [language]\nExample: /ocr eng",
		DE: "Verwendung: /ocr [language]\nBeispiel: /ocr deu",
		FA: "نحوه استفاده: /ocr [language]\nمثال: /ocr fas",
	},
	SplitUsage: {
		EN: "Usage: /split [ranges]\nExample: /split 1-3 5-7",
		DE: "Verwendung: /split [Bereiche]\nBeispiel: /split 1-3 5-7",
	},
	CompressionMenu: {
		EN: "🖼️ Found %d image(s) to convert\n\n" +
			"🔧 *Choose compression level:*\n\n" +
			"1️⃣ /compress\\_high - High Quality (95%%)\n" +
			"2️⃣ /compress\\_medium - Medium Quality (85%%) - Default\n" +
			"3️⃣ /compress\\_low - Low Quality (70%%) - Smallest file\n" +
			"4️⃣ /convert\\_now - Use current setting\n" +
			"Current setting: %s",
	},
	CompressionSet: {
		EN: "🔧 Compression set to *%s*",
		DE: "🔧 Komprimierung eingestellt auf *%s*",
	},
	ImageReceived: {
		EN: "✅ Image received!\nFormat: %s\nSize: %s\nImages pending: %d\n\nSend more images or use /convert when ready!",
		DE: "✅ Bild empfangen!\nFormat: %s\nGröße: %s\nAusstehende Bilder: %d\n\nSende weitere Bilder oder nutze /convert.",
	},
	InvalidImage: {
		EN: "❌ Invalid image format. Please send a valid image.",
		DE: "❌ Ungültiges Bildformat. Bitte sende ein gültiges Bild.",
	},
	NoImages: {
		EN: "❌ No images to convert!\n\nPlease send me some images first, then use /convert.",
		DE: "❌ Keine Bilder zum Umwandeln!\n\nBitte sende zuerst Bilder und nutze dann /convert.",
	},
	Processing: {
		EN: "🔄 Converting %d image(s) to PDF...\nCompression: %s\nThis may take a moment...",
		DE: "🔄 Wandle %d Bild(er) in PDF um...\nKomprimierung: %s\nDas kann einen Moment dauern...",
	},
	ConversionDone: {
		EN: "✅ Conversion completed!",
		DE: "✅ Umwandlung abgeschlossen!",
	},
	ConversionDoneMany: {
		EN: "✅ %d images converted to PDF!",
		DE: "✅ %d Bilder in PDF umgewandelt!",
	},
	SizeInfo: {
		EN: "📊 File Size Info:\n📸 Original: %s\n📄 PDF: %s\n🔧 Compression: %s\n📐 Format: %s\n📏 Dimensions: %s",
	},
	SizeInfoMany: {
		EN: "📊 File Size Info:\n📸 Total Original: %s\n📄 PDF: %s\n🔧 Compression: %s\n🖼️ Images: %d",
	},
	ConversionError: {
		EN: "❌ Error during conversion: %s\nPlease try again.",
		DE: "❌ Fehler bei der Umwandlung: %s\nBitte versuche es erneut.",
	},
	UnsupportedFormat: {
		EN: "❌ Unsupported format: %s\nSupported formats: %s",
		DE: "❌ Nicht unterstütztes Format: %s\nUnterstützte Formate: %s",
	},
	PDFReceived: {
		EN: "✅ PDF received: %s\nPDFs pending: %d\nUse /merge or /split.",
		DE: "✅ PDF empfangen: %s\nAusstehende PDFs: %d\nNutze /merge oder /split.",
	},
	DocumentReceived: {
		EN: "✅ Document received: %s\nConverting to PDF...",
		DE: "✅ Dokument empfangen: %s\nWandle in PDF um...",
	},
	DocumentSuccess: {
		EN: "✅ Document converted to PDF!\n📄 Original: %s\n📄 PDF: %s",
		DE: "✅ Dokument in PDF umgewandelt!\n📄 Original: %s\n📄 PDF: %s",
	},
	DocumentError: {
		EN: "❌ Document conversion failed: %s",
		DE: "❌ Umwandlung des Dokuments fehlgeschlagen: %s",
	},
	URLConverting: {
		EN: "🌐 Rendering %s ...",
	},
	MergeDone: {
		EN: "✅ Merged %d PDFs.",
		DE: "✅ %d PDFs zusammengeführt.",
	},
	SplitDone: {
		EN: "✅ Split into %d file(s).",
		DE: "✅ In %d Datei(en) geteilt.",
	},
	CompressDone: {
		EN: "✅ Compressed: %s → %s",
	},
	OCRDone: {
		EN: "✅ OCR completed (%s).",
	},
	OCRText: {
		EN: "📝 Recognized text:\n\n%s",
	},
	OCRNoText: {
		EN: "ℹ️ No text was recognized.",
	},
	DeliveryTimeout: {
		EN: "⌛ The file is ready but sending it timed out. Please try again.",
		DE: "⌛ Die Datei ist fertig, aber das Senden hat zu lange gedauert. Bitte erneut versuchen.",
	},
	DebugSaved: {
		EN: "📁 Debug mode: PDF saved to %s",
	},
	Queued: {
		EN: "⏳ Your previous request is still running. This one is queued.",
		DE: "⏳ Deine vorherige Anfrage läuft noch. Diese ist in der Warteschlange.",
	},
	NotAllowed: {
		EN: "⛔ You are not allowed to use this bot.",
	},
	DownloadFailed: {
		EN: "❌ Could not download the file: %s",
	},
	InternalError: {
		EN: "❌ An error occurred. Please try again later.",
		DE: "❌ Ein Fehler ist aufgetreten. Bitte später erneut versuchen.",
		FA: "❌ خطایی رخ داد. لطفاً بعداً دوباره امتحان کنید.",
	},
}
