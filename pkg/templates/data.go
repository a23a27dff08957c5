package templates

// Note types
const (
	NoteTypeImage    = "图文"
	NoteTypeVideo    = "视频"
	NoteTypeLongform = "长文"
)

// Validation limits, counted in characters
const (
	MaxTitleLength    = 20
	MaxContentLength  = 1000
	MaxLongformLength = 10000
	MaxTags           = 10
	MinContentLength  = 10
)

// Title hook styles
const (
	StyleNumeric   = "数字型"
	StyleQuestion  = "疑问型"
	StyleEmotional = "情感型"
)

type hookSet struct {
	style string
	hooks []string
}

// titleHooks is ordered so mixed-style sampling is reproducible for a seed
var titleHooks = []hookSet{
	{StyleNumeric, []string{
		"{count}个{topic}技巧，第{n}个绝了",
		"关于{topic}，这{count}点你一定要知道",
		"{topic}必看！{count}个实用方法分享",
		"收藏！{count}个{topic}的实用建议",
		"{count}步搞定{topic}，新手也能学会",
	}},
	{StyleQuestion, []string{
		"{topic}到底怎么选？看完不纠结",
		"为什么你的{topic}总是不对？原因在这",
		"{topic}真的有用吗？亲测告诉你",
		"还在纠结{topic}？这篇帮你理清思路",
		"{topic}踩过的坑，希望你别再踩了",
	}},
	{StyleEmotional, []string{
		"后悔没早知道的{topic}经验",
		"被{topic}惊艳到了！必须分享给你们",
		"这个{topic}方法太绝了！强烈推荐",
		"真心推荐！{topic}的宝藏经验",
		"终于找到最适合的{topic}方法了",
	}},
}

var titleCounts = []int{3, 5, 6, 7, 8, 10}

type contentTemplate struct {
	structure []string
	template  string
	hooks     []string
	closings  []string
}

var contentTemplates = map[string]contentTemplate{
	NoteTypeImage: {
		structure: []string{
			"【开头钩子】用 1-2 句话抓住读者注意力",
			"【核心内容】分 3-5 个要点展开",
			"【总结互动】总结要点 + 引导互动提问",
		},
		template: "{hook}\n\n{point_1}\n\n{point_2}\n\n{point_3}\n\n{closing}",
		hooks: []string{
			"姐妹们！这个{topic}真的太好用了，忍不住分享给你们～",
			"关于{topic}，我研究了很久终于找到最优解！",
			"分享一个让我受益匪浅的{topic}经验，建议收藏！",
		},
		closings: []string{
			"以上就是我关于{topic}的分享啦～觉得有用的话记得点赞收藏哦！你们有什么好的建议也欢迎在评论区告诉我～",
			"希望这篇{topic}分享对你有帮助！还有什么想了解的，评论区见～",
			"关于{topic}就分享到这里啦！如果你也有好的经验，欢迎在评论区交流！",
		},
	},
	NoteTypeVideo: {
		structure: []string{
			"【开头 3 秒】用悬念或痛点抓住注意力",
			"【主体内容】清晰的步骤或故事线",
			"【结尾 CTA】引导点赞关注收藏",
		},
		template: "{hook}\n\n今天分享关于{topic}的内容：\n\n1. {point_1}\n2. {point_2}\n3. {point_3}\n\n{closing}",
		hooks: []string{
			"等等！关于{topic}，这个你一定不知道👇",
			"1 分钟教你搞定{topic}！",
			"关于{topic}，千万别踩这些坑！",
		},
		closings: []string{
			"觉得有用就点个赞吧～关注我获取更多{topic}干货！",
			"喜欢的话记得三连支持一下！还有什么想看的内容评论区告诉我～",
		},
	},
	NoteTypeLongform: {
		structure: []string{
			"【引言】背景介绍 + 阅读价值",
			"【正文】分章节深入展开（3-5 节）",
			"【结语】总结 + 互动引导",
		},
		template: "# {title}\n\n## 前言\n{hook}\n\n## 一、{section_1_title}\n{section_1}\n\n## 二、{section_2_title}\n{section_2}\n\n## 三、{section_3_title}\n{section_3}\n\n## 总结\n{closing}",
		hooks: []string{
			"这篇文章是我关于{topic}的深度分享，希望能给正在了解这方面内容的你一些帮助。",
			"最近研究{topic}有了一些心得，整理成这篇长文分享给大家。",
		},
		closings: []string{
			"以上就是关于{topic}的全部内容了。如果这篇文章对你有帮助，别忘了点赞收藏，方便以后查看～",
			"关于{topic}的分享就到这里。欢迎在评论区留下你的想法，一起讨论！",
		},
	},
}

type tagCategory struct {
	name string
	tags []string
}

var tagDatabase = []tagCategory{
	{"旅行", []string{"旅行攻略", "旅行日记", "小众旅行地", "自由行", "旅行穿搭", "打卡", "周末去哪玩", "城市漫步"}},
	{"美食", []string{"美食分享", "食谱", "探店", "家常菜", "烘焙", "减脂餐", "下午茶", "美食推荐"}},
	{"穿搭", []string{"穿搭分享", "日常穿搭", "通勤穿搭", "OOTD", "搭配灵感", "显瘦穿搭", "氛围感穿搭", "季节穿搭"}},
	{"护肤", []string{"护肤心得", "成分党", "敏感肌", "防晒", "抗老", "平价好物", "护肤步骤", "肌肤管理"}},
	{"数码", []string{"数码好物", "科技分享", "App推荐", "效率工具", "电子产品", "测评", "手机摄影", "数码生活"}},
	{"学习", []string{"学习方法", "自律打卡", "考试经验", "读书笔记", "成长记录", "知识分享", "高效学习", "自我提升"}},
	{"职场", []string{"职场经验", "面试技巧", "副业", "自由职业", "职场干货", "升职加薪", "跳槽经验", "行业分析"}},
	{"生活", []string{"生活记录", "居家好物", "收纳整理", "极简生活", "生活方式", "日常vlog", "独居生活", "幸福感"}},
	{"健身", []string{"健身打卡", "减脂", "增肌", "瑜伽", "跑步", "健身食谱", "居家健身", "健身入门"}},
	{"母婴", []string{"育儿经验", "母婴好物", "辅食食谱", "新手妈妈", "亲子活动", "孕期记录", "儿童教育", "宝宝日常"}},
}

// UniversalTags apply to every topic
var UniversalTags = []string{"干货分享", "经验分享", "好物推荐", "日常", "记录生活", "涨知识"}
