package safety

// builtinSpam is always checked when the spam filter is enabled.
var builtinSpam = []string{
	"垃圾邮件", "spam", "广告", "推广", "赚钱", "兼职",
	"色情", "porn", "赌博", "gambling", "博彩",
	"违法", "诈骗", "欺诈", "scam", "fraud",
	"这是垃圾邮件", "this is spam content",
	"快速赚钱的方法", "easy money making opportunity",
}

// builtinProfanity is always checked when the profanity filter is enabled
// and is always masked by FilterContent.
var builtinProfanity = []string{
	"操", "艹", "草", "妈的", "他妈", "傻逼", "煞笔",
	"fuck", "shit", "damn", "bitch", "asshole",
	"你真是个傻逼", "this is fucking terrible",
	"草你妈的", "what a bitch",
}

// shortenerHosts are link shorteners whose URLs are treated as suspicious.
var shortenerHosts = []string{
	"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly", "buff.ly", "is.gd",
}
